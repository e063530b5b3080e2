// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
bloomd is a scalable bloom filter server written in Go.

It stores named bloom filters that transparently grow to hold any number of
items while honoring a target false positive rate, persists them across
restarts, and serves membership queries and mutations over an authenticated
JSON-RPC interface with websocket support.

The default options are sane for most users.  This means bloomd will work 'out
of the box' for most users.  However, there are also a wide variety of flags
that can be used to control it.

The following section provides a usage overview which enumerates the flags.  An
interesting point to note is that the long form of all of these options
(except -C) can be specified in a configuration file that is automatically
parsed when bloomd starts up.  By default, the configuration file is located at
~/.bloomd/bloomd.conf on POSIX-style operating systems and
%LOCALAPPDATA%\bloomd\bloomd.conf on Windows.  The -C (--configfile) flag, as
shown below, can be used to override this location.

Usage:

	bloomd [OPTIONS]

Application Options:

	    --altdnsnames=           Specify additional DNS names to use when
	                             generating the RPC server certificate [supports
	                             BLOOMD_ALT_DNSNAMES environment variable]
	-C, --configfile=            Path to configuration file
	    --cpuprofile=            Write CPU profile to the specified file
	-b, --datadir=               Directory to store data
	-d, --debuglevel=            Logging level for all subsystems {trace, debug,
	                             info, warn, error, critical} -- You may also
	                             specify
	                             <subsystem>=<level>,<subsystem2>=<level>,... to
	                             set the log level for individual subsystems --
	                             Use show to list available subsystems (default:
	                             info)
	    --defaultfprate=         Default target false positive rate for filters
	                             created without an explicit rate (default: 0.01)
	    --norpc                  Disable built-in RPC server -- NOTE: The RPC
	                             server is disabled by default if no
	                             rpcuser/rpcpass or rpclimituser/rpclimitpass is
	                             specified
	    --notls                  Disable TLS for the RPC server -- NOTE: This is
	                             only allowed if the RPC server is bound to
	                             localhost
	-A, --appdata=               Path to application home directory
	    --logdir=                Directory to log output
	    --memlimit=              Soft upper limit in MiB for memory usage of the
	                             process when the Go runtime supports it (0 to
	                             use the runtime default) (default: 1024)
	    --memprofile=            Write mem profile to the specified file
	    --nofilelogging          Disable file logging
	    --profile=               Enable HTTP profiling on given [addr:]port --
	                             NOTE port must be between 1024 and 65535
	    --rpccert=               File containing the certificate file
	    --rpckey=                File containing the certificate key
	    --rpclimitpass=          Password for limited RPC connections
	    --rpclimituser=          Username for limited RPC connections
	    --rpclisten=             Add an interface/port to listen for RPC
	                             connections (default port: 8673)
	    --rpcmaxclients=         Max number of RPC clients for standard
	                             connections (default: 10)
	    --rpcmaxconcurrentreqs=  Max number of RPC requests that may be
	                             processed concurrently (default: 20)
	    --rpcmaxwebsockets=      Max number of RPC websocket connections
	                             (default: 25)
	-P, --rpcpass=               Password for RPC connections
	-u, --rpcuser=               Username for RPC connections
	-V, --version                Display version information and exit

Help Options:

	-h, --help                   Show this help message
*/
package main
