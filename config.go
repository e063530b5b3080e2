// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2025 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/decred/dcrd/crypto/rand"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/slog"
	flags "github.com/jessevdk/go-flags"

	"github.com/bloomdb/bloomd/internal/filterdb"
	"github.com/bloomdb/bloomd/internal/version"
	"github.com/bloomdb/bloomd/sampleconfig"
)

const (
	defaultConfigFilename       = "bloomd.conf"
	defaultDataDirname          = "data"
	defaultLogLevel             = "info"
	defaultLogDirname           = "logs"
	defaultLogFilename          = "bloomd.log"
	defaultDbName               = "filters"
	defaultRPCPort              = "8673"
	defaultMaxRPCClients        = 10
	defaultMaxRPCWebsockets     = 25
	defaultMaxRPCConcurrentReqs = 20
	defaultMemLimit             = 1024
)

var (
	defaultHomeDir     = dcrutil.AppDataDir("bloomd", false)
	defaultConfigFile  = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir     = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultRPCKeyFile  = filepath.Join(defaultHomeDir, "rpc.key")
	defaultRPCCertFile = filepath.Join(defaultHomeDir, "rpc.cert")
	defaultLogDir      = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// errSuppressUsage signifies that an error that happened during the initial
// configuration process should suppress the usage output since it was not
// caused by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// config defines the configuration options for bloomd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	AltDNSNames          []string `long:"altdnsnames" description:"Specify additional DNS names to use when generating the RPC server certificate" env:"BLOOMD_ALT_DNSNAMES" env-delim:","`
	ConfigFile           string   `short:"C" long:"configfile" description:"Path to configuration file"`
	CPUProfile           string   `long:"cpuprofile" description:"Write CPU profile to the specified file"`
	DataDir              string   `short:"b" long:"datadir" description:"Directory to store data"`
	DebugLevel           string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	DefaultFPRate        float64  `long:"defaultfprate" description:"Default target false positive rate for filters created without an explicit rate"`
	DisableRPC           bool     `long:"norpc" description:"Disable built-in RPC server -- NOTE: The RPC server is disabled by default if no rpcuser/rpcpass or rpclimituser/rpclimitpass is specified"`
	DisableTLS           bool     `long:"notls" description:"Disable TLS for the RPC server -- NOTE: This is only allowed if the RPC server is bound to localhost"`
	HomeDir              string   `short:"A" long:"appdata" description:"Path to application home directory"`
	LogDir               string   `long:"logdir" description:"Directory to log output"`
	MemLimit             uint64   `long:"memlimit" description:"Soft upper limit in MiB for memory usage of the process when the Go runtime supports it (0 to use the runtime default)"`
	MemProfile           string   `long:"memprofile" description:"Write mem profile to the specified file"`
	NoFileLogging        bool     `long:"nofilelogging" description:"Disable file logging"`
	Profile              string   `long:"profile" description:"Enable HTTP profiling on given [addr:]port -- NOTE port must be between 1024 and 65535"`
	RPCCert              string   `long:"rpccert" description:"File containing the certificate file"`
	RPCKey               string   `long:"rpckey" description:"File containing the certificate key"`
	RPCLimitPass         string   `long:"rpclimitpass" default-mask:"-" description:"Password for limited RPC connections"`
	RPCLimitUser         string   `long:"rpclimituser" description:"Username for limited RPC connections"`
	RPCListeners         []string `long:"rpclisten" description:"Add an interface/port to listen for RPC connections (default port: 8673)"`
	RPCMaxClients        int      `long:"rpcmaxclients" description:"Max number of RPC clients for standard connections"`
	RPCMaxConcurrentReqs int      `long:"rpcmaxconcurrentreqs" description:"Max number of RPC requests that may be processed concurrently"`
	RPCMaxWebsockets     int      `long:"rpcmaxwebsockets" description:"Max number of RPC websocket connections"`
	RPCPass              string   `short:"P" long:"rpcpass" default-mask:"-" description:"Password for RPC connections"`
	RPCUser              string   `short:"u" long:"rpcuser" description:"Username for RPC connections"`
	ShowVersion          bool     `short:"V" long:"version" description:"Display version information and exit"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the passed
// path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)

	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]

	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir, _ = os.Getwd()
	}

	return filepath.Join(homeDir, path)
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := slog.LevelFromString(logLevel)
	return ok
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// removeDuplicateAddresses returns a new slice with all duplicate entries in
// addrs removed.
func removeDuplicateAddresses(addrs []string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, val := range addrs {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// normalizeAddress returns the passed address with the passed default port
// appended when the address does not already have a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// normalizeInterfaceAddrs returns a slice of addresses that results from
// expanding the passed address into all of the addresses associated with the
// network interface of the same name when it exists and a slice that consists
// solely of the normalized form of the passed address with the default port
// appended as needed otherwise.
func normalizeInterfaceAddrs(addr, defaultPort string) ([]string, error) {
	// Separate any specified port from the potential interface name and use
	// the default port when one is not specified.
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = defaultPort
	}

	// Handle addresses that do not refer to the name of a network interface.
	netIf, err := net.InterfaceByName(host)
	if err != nil {
		return []string{normalizeAddress(addr, defaultPort)}, nil
	}

	// Expand the interface name into all of the addresses associated with it.
	ifAddrs, err := netIf.Addrs()
	if err != nil {
		return nil, err
	}
	normalized := make([]string, 0, len(ifAddrs))
	for _, ifAddr := range ifAddrs {
		ipNet, ok := ifAddr.(*net.IPNet)
		if !ok {
			continue
		}
		normalized = append(normalized, net.JoinHostPort(ipNet.IP.String(), port))
	}
	return normalized, nil
}

// normalizeAddresses returns a new slice with all of the passed addresses
// normalized by the provided normalization function and all duplicates
// removed.  Addresses that fail to normalize are ignored.
func normalizeAddresses(addrs []string, defaultPort string, normalizeFunc func(addr, defaultPort string) ([]string, error)) []string {
	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		normalized, err := normalizeFunc(addr, defaultPort)
		if err != nil {
			continue
		}
		result = append(result, normalized...)
	}
	return removeDuplicateAddresses(result)
}

// filesExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// createDefaultConfigFile copies the sample config file to the given
// destination path and populates it with some randomly generated RPC username
// and password.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	// Generate a random user and password for the RPC server credentials.
	randomBytes := make([]byte, 20)
	rand.Read(randomBytes)
	generatedRPCUser := base64.StdEncoding.EncodeToString(randomBytes)
	rpcUserLine := fmt.Sprintf("rpcuser=%v", generatedRPCUser)

	rand.Read(randomBytes)
	generatedRPCPass := base64.StdEncoding.EncodeToString(randomBytes)
	rpcPassLine := fmt.Sprintf("rpcpass=%v", generatedRPCPass)

	// Replace the rpcuser and rpcpass lines in the sample configuration file
	// contents with their generated values.
	rpcUserRE := regexp.MustCompile(`(?m)^;\s*rpcuser=[^\s]*$`)
	rpcPassRE := regexp.MustCompile(`(?m)^;\s*rpcpass=[^\s]*$`)
	s := rpcUserRE.ReplaceAllString(sampleconfig.Bloomd(), rpcUserLine)
	s = rpcPassRE.ReplaceAllString(s, rpcPassLine)

	// Create config file at the provided path.
	dest, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	_, err = dest.WriteString(s)
	return err
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in bloomd functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
//
// The provided appName is used in the version and help output.
func loadConfig(appName string) (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:              defaultHomeDir,
		ConfigFile:           defaultConfigFile,
		DebugLevel:           defaultLogLevel,
		DataDir:              defaultDataDir,
		LogDir:               defaultLogDir,
		DefaultFPRate:        filterdb.DefaultErrorRate,
		MemLimit:             defaultMemLimit,
		RPCKey:               defaultRPCKeyFile,
		RPCCert:              defaultRPCCertFile,
		RPCMaxClients:        defaultMaxRPCClients,
		RPCMaxWebsockets:     defaultMaxRPCWebsockets,
		RPCMaxConcurrentReqs: defaultMaxRPCConcurrentReqs,
	}

	// Pre-parse the command line options to see if an alternative config file
	// or the version flag was specified.  Any errors aside from the help
	// message error can be ignored here since they will be caught by the final
	// parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory for bloomd if specified.  Since the home
	// directory is updated, other variables need to be updated to reflect the
	// new changes.
	if preCfg.HomeDir != defaultHomeDir {
		cfg.HomeDir, _ = filepath.Abs(preCfg.HomeDir)

		if preCfg.ConfigFile == defaultConfigFile {
			defaultConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
			preCfg.ConfigFile = defaultConfigFile
			cfg.ConfigFile = defaultConfigFile
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		} else {
			cfg.DataDir = preCfg.DataDir
		}
		if preCfg.RPCKey == defaultRPCKeyFile {
			cfg.RPCKey = filepath.Join(cfg.HomeDir, "rpc.key")
		} else {
			cfg.RPCKey = preCfg.RPCKey
		}
		if preCfg.RPCCert == defaultRPCCertFile {
			cfg.RPCCert = filepath.Join(cfg.HomeDir, "rpc.cert")
		} else {
			cfg.RPCCert = preCfg.RPCCert
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	if preCfg.ConfigFile == defaultConfigFile && !fileExists(preCfg.ConfigFile) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error creating a default "+
				"config file: %v\n", err)
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Create the home directory to house all of the application data if it
	// doesn't already exist.
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is linked to a
		// directory that does not exist (probably because it's not mounted).
		var e *os.PathError
		if errors.As(err, &e) && os.IsExist(err) {
			link, lerr := os.Readlink(e.Path)
			if lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}
		str := fmt.Sprintf("failed to create home directory: %v", err)
		return nil, nil, errSuppressUsage(str)
	}

	// Clean and expand all file and directory paths in the config.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.RPCKey = cleanAndExpandPath(cfg.RPCKey)
	cfg.RPCCert = cleanAndExpandPath(cfg.RPCCert)
	cfg.CPUProfile = cleanAndExpandPath(cfg.CPUProfile)
	cfg.MemProfile = cleanAndExpandPath(cfg.MemProfile)

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	if !cfg.NoFileLogging {
		initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, err
	}

	// Ensure the default false positive rate for created filters is sane.
	if math.IsNaN(cfg.DefaultFPRate) || cfg.DefaultFPRate <= 0 ||
		cfg.DefaultFPRate >= 1 {

		str := "the defaultfprate option must be in the range (0, 1) -- " +
			"parsed [%v]"
		return nil, nil, fmt.Errorf(str, cfg.DefaultFPRate)
	}

	// Check to make sure limited and admin users don't have the same username.
	if cfg.RPCUser == cfg.RPCLimitUser && cfg.RPCUser != "" {
		str := "--rpcuser and --rpclimituser must not specify the same username"
		return nil, nil, errors.New(str)
	}

	// Check to make sure limited and admin users don't have the same password.
	if cfg.RPCPass == cfg.RPCLimitPass && cfg.RPCPass != "" {
		str := "--rpcpass and --rpclimitpass must not specify the same password"
		return nil, nil, errors.New(str)
	}

	// The RPC server is disabled if no username or password is provided.
	if (cfg.RPCUser == "" || cfg.RPCPass == "") &&
		(cfg.RPCLimitUser == "" || cfg.RPCLimitPass == "") {
		cfg.DisableRPC = true
	}

	if cfg.DisableRPC {
		bmdLog.Infof("RPC service is disabled")
	}

	// Default RPC to listen on localhost only.
	if !cfg.DisableRPC && len(cfg.RPCListeners) == 0 {
		addrs, err := net.LookupHost("localhost")
		if err != nil {
			return nil, nil, err
		}
		cfg.RPCListeners = make([]string, 0, len(addrs))
		for _, addr := range addrs {
			addr = net.JoinHostPort(addr, defaultRPCPort)
			cfg.RPCListeners = append(cfg.RPCListeners, addr)
		}
	}

	// Add the default port to all RPC listener addresses if needed and remove
	// duplicate addresses.
	cfg.RPCListeners = normalizeAddresses(cfg.RPCListeners, defaultRPCPort,
		normalizeInterfaceAddrs)

	// Only allow max RPC request limits that are positive.
	if cfg.RPCMaxClients < 0 {
		str := "the rpcmaxclients option may not be less than 0 -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.RPCMaxClients)
	}
	if cfg.RPCMaxWebsockets < 0 {
		str := "the rpcmaxwebsockets option may not be less than 0 -- " +
			"parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.RPCMaxWebsockets)
	}
	if cfg.RPCMaxConcurrentReqs < 0 {
		str := "the rpcmaxconcurrentreqs option may not be less than 0 -- " +
			"parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.RPCMaxConcurrentReqs)
	}

	// The --notls option may only be used when the RPC server is bound to
	// localhost addresses.
	if !cfg.DisableRPC && cfg.DisableTLS {
		allowedTLSListeners := map[string]struct{}{
			"localhost": {},
			"127.0.0.1": {},
			"::1":       {},
		}
		for _, addr := range cfg.RPCListeners {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				str := "RPC listen interface '%s' is invalid: %v"
				return nil, nil, fmt.Errorf(str, addr, err)
			}
			if _, ok := allowedTLSListeners[host]; !ok {
				str := "the --notls option may not be used when binding RPC " +
					"to non localhost addresses: %s"
				return nil, nil, fmt.Errorf(str, addr)
			}
		}
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid options.
	// Note this should go directly before the return.
	if configFileError != nil {
		bmdLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
