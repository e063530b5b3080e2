package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bloomdb/bloomd/internal/filterdb"
)

// runLoadConfig invokes loadConfig with the provided command line arguments
// applied on top of a pristine temporary home directory.  Replacing the
// command line outright ensures there are no external influences from the
// test binary's own flags or from previously created default config files.
func runLoadConfig(t *testing.T, extraArgs ...string) (*config, error) {
	t.Helper()

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = append([]string{"bloomd", "-A", t.TempDir(), "--nofilelogging"},
		extraArgs...)

	cfg, _, err := loadConfig("bloomd")
	return cfg, err
}

// TestLoadConfig ensures loading the config against a pristine home directory
// succeeds, creates a default config file populated with generated RPC
// credentials, and applies the expected defaults.
func TestLoadConfig(t *testing.T) {
	cfg, err := runLoadConfig(t)
	if err != nil {
		t.Fatalf("Failed to load bloomd config: %v", err)
	}

	// The default config file must have been created in the home directory
	// with generated RPC credentials, which in turn means the RPC server is
	// not disabled.
	if !fileExists(cfg.ConfigFile) {
		t.Errorf("default config file %s was not created", cfg.ConfigFile)
	}
	if cfg.RPCUser == "" || cfg.RPCPass == "" {
		t.Error("expected generated RPC credentials from default config file")
	}
	if cfg.DisableRPC {
		t.Error("RPC server unexpectedly disabled with generated credentials")
	}
	if len(cfg.RPCListeners) == 0 {
		t.Fatal("expected default RPC listeners")
	}
	for _, addr := range cfg.RPCListeners {
		if !strings.HasSuffix(addr, ":"+defaultRPCPort) {
			t.Errorf("RPC listener %s does not use default port %s", addr,
				defaultRPCPort)
		}
	}

	if cfg.DefaultFPRate != filterdb.DefaultErrorRate {
		t.Errorf("wrong default false positive rate: got %v, want %v",
			cfg.DefaultFPRate, filterdb.DefaultErrorRate)
	}
	if cfg.RPCMaxClients != defaultMaxRPCClients {
		t.Errorf("wrong default rpcmaxclients: got %d, want %d",
			cfg.RPCMaxClients, defaultMaxRPCClients)
	}
	if cfg.MemLimit != defaultMemLimit {
		t.Errorf("wrong default memlimit: got %d, want %d", cfg.MemLimit,
			defaultMemLimit)
	}
	wantDataDir := filepath.Join(cfg.HomeDir, defaultDataDirname)
	if cfg.DataDir != wantDataDir {
		t.Errorf("wrong data directory: got %s, want %s", cfg.DataDir,
			wantDataDir)
	}
}

// TestLoadConfigNoRPCCredentials ensures the RPC server is disabled when the
// config file does not provide any credentials.
func TestLoadConfigNoRPCCredentials(t *testing.T) {
	// Point at an existing empty config file so the default one with
	// generated credentials is not created.
	emptyConf := filepath.Join(t.TempDir(), "empty.conf")
	if err := os.WriteFile(emptyConf, nil, 0600); err != nil {
		t.Fatalf("unable to create empty config file: %v", err)
	}

	cfg, err := runLoadConfig(t, "-C", emptyConf)
	if err != nil {
		t.Fatalf("Failed to load bloomd config: %v", err)
	}
	if !cfg.DisableRPC {
		t.Error("expected RPC server to be disabled without credentials")
	}
	if len(cfg.RPCListeners) != 0 {
		t.Errorf("expected no RPC listeners, got %v", cfg.RPCListeners)
	}
}

// TestRPCListenerNormalization ensures RPC listen addresses are normalized
// with the default port and deduplicated.
func TestRPCListenerNormalization(t *testing.T) {
	cfg, err := runLoadConfig(t, "--rpclisten=127.0.0.1",
		"--rpclisten=127.0.0.1:8673", "--rpclisten=127.0.0.1:9000")
	if err != nil {
		t.Fatalf("Failed to load bloomd config: %v", err)
	}

	want := []string{"127.0.0.1:8673", "127.0.0.1:9000"}
	if len(cfg.RPCListeners) != len(want) {
		t.Fatalf("wrong RPC listeners: got %v, want %v", cfg.RPCListeners,
			want)
	}
	for i, addr := range want {
		if cfg.RPCListeners[i] != addr {
			t.Errorf("wrong RPC listener %d: got %s, want %s", i,
				cfg.RPCListeners[i], addr)
		}
	}
}

// TestDefaultAltDNSNames ensures there are no additional DNS names for the
// RPC server certificate by default.
func TestDefaultAltDNSNames(t *testing.T) {
	cfg, err := runLoadConfig(t)
	if err != nil {
		t.Fatalf("Failed to load bloomd config: %v", err)
	}
	if len(cfg.AltDNSNames) != 0 {
		t.Errorf("invalid default value for altdnsnames: %s", cfg.AltDNSNames)
	}
}

// TestAltDNSNamesWithEnv ensures additional DNS names for the RPC server
// certificate may be provided via the BLOOMD_ALT_DNSNAMES environment
// variable.
func TestAltDNSNamesWithEnv(t *testing.T) {
	t.Setenv("BLOOMD_ALT_DNSNAMES", "hostname1,hostname2")
	cfg, err := runLoadConfig(t)
	if err != nil {
		t.Fatalf("Failed to load bloomd config: %v", err)
	}
	hostnames := strings.Join(cfg.AltDNSNames, ",")
	if hostnames != "hostname1,hostname2" {
		t.Errorf("altDNSNames should be %s but was %s", "hostname1,hostname2",
			hostnames)
	}
}

// TestAltDNSNamesWithArg ensures additional DNS names for the RPC server
// certificate may be provided via repeated --altdnsnames options.
func TestAltDNSNamesWithArg(t *testing.T) {
	cfg, err := runLoadConfig(t, "--altdnsnames=hostname1",
		"--altdnsnames=hostname2")
	if err != nil {
		t.Fatalf("Failed to load bloomd config: %v", err)
	}
	hostnames := strings.Join(cfg.AltDNSNames, ",")
	if hostnames != "hostname1,hostname2" {
		t.Errorf("altDNSNames should be %s but was %s", "hostname1,hostname2",
			hostnames)
	}
}

// TestLoadConfigErrors ensures loadConfig rejects invalid options and invalid
// option combinations with a suitable error.
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string   // test description
		args []string // command line arguments to load the config with
		want string   // substring the returned error must contain
	}{{
		name: "false positive rate too high",
		args: []string{"--defaultfprate=1.5"},
		want: "defaultfprate",
	}, {
		name: "false positive rate zero",
		args: []string{"--defaultfprate=0"},
		want: "defaultfprate",
	}, {
		name: "admin and limited usernames match",
		args: []string{"-u", "admin", "--rpclimituser=admin"},
		want: "rpclimituser",
	}, {
		name: "admin and limited passwords match",
		args: []string{"-P", "hunter2", "--rpclimitpass=hunter2"},
		want: "rpclimitpass",
	}, {
		name: "negative rpcmaxclients",
		args: []string{"--rpcmaxclients=-1"},
		want: "rpcmaxclients",
	}, {
		name: "negative rpcmaxwebsockets",
		args: []string{"--rpcmaxwebsockets=-1"},
		want: "rpcmaxwebsockets",
	}, {
		name: "negative rpcmaxconcurrentreqs",
		args: []string{"--rpcmaxconcurrentreqs=-1"},
		want: "rpcmaxconcurrentreqs",
	}, {
		name: "invalid debug level",
		args: []string{"--debuglevel=bogus"},
		want: "debug level",
	}, {
		name: "invalid debug subsystem",
		args: []string{"--debuglevel=BOGUS=info"},
		want: "subsystem",
	}, {
		name: "notls with non localhost listener",
		args: []string{"--notls", "--rpclisten=0.0.0.0"},
		want: "notls",
	}}

	for _, test := range tests {
		_, err := runLoadConfig(t, test.args...)
		if err == nil {
			t.Errorf("%q: expected error", test.name)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%q: error %q does not mention %q", test.name, err,
				test.want)
		}
	}
}
