package core

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	local := func(dataDir string) *Config {
		conf := &Config{Backend: BackendLocal}
		conf.Local.DataDir = dataDir
		return conf
	}
	remote := func(host, name, user string) *Config {
		conf := &Config{Backend: BackendRemote}
		conf.Remote.Host = host
		conf.Remote.Name = name
		conf.Remote.User = user
		return conf
	}

	tests := []struct {
		name    string
		conf    *Config
		wantErr bool
	}{
		{name: "local ok", conf: local("data")},
		{name: "local missing dataDir", conf: local(""), wantErr: true},
		{name: "remote ok", conf: remote("db.test.cd", "darasa", "app")},
		{name: "remote missing host", conf: remote("", "darasa", "app"), wantErr: true},
		{name: "remote missing everything", conf: remote("", "", ""), wantErr: true},
		{name: "unknown backend", conf: &Config{Backend: "cloud"}, wantErr: true},
		{name: "empty backend", conf: &Config{}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsConfig(err) {
				t.Errorf("Validate() error = %v, want config error", err)
			}
		})
	}
}

// every missing param is named so a deployment can be fixed in one pass
func TestConfig_Validate_namesMissingParams(t *testing.T) {
	conf := &Config{Backend: BackendRemote}
	conf.Remote.Host = "db.test.cd"

	err := conf.Validate()
	if err == nil {
		t.Fatal("Validate() accepted a partial remote config")
	}
	for _, p := range []string{"name", "user"} {
		if !strings.Contains(err.Error(), p) {
			t.Errorf("Validate() error %q does not name %q", err, p)
		}
	}
}

func TestRemoteConfig_Address(t *testing.T) {
	rc := RemoteConfig{Host: "db.test.cd", Port: "5432"}
	if got, want := rc.Address(), "db.test.cd:5432"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}
}
