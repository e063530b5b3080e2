// Copyright (c) 2020-2025 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/elliptic"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode"

	"github.com/decred/dcrd/certgen"
	"github.com/decred/dcrd/dcrutil/v4"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/net/idna"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func usage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	os.Exit(2)
}

var defaultHomeDir = dcrutil.AppDataDir("bloomd", false)

type config struct {
	Hosts []string `short:"H" description:"additional hostname or IP certificate is valid for; may be specified multiple times"`
	Org   string   `short:"o" description:"organization"`
	Algo  string   `short:"a" description:"key algorithm (one of: P-256, P-384, P-521, Ed25519)"`
	Years int      `short:"y" description:"years certificate is valid for"`
	Force bool     `short:"f" description:"overwrite existing certs/keys"`
}

// isASCII reports whether s consists solely of ASCII characters.
func isASCII(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// normalizeHosts converts any internationalized host names to their ASCII
// form so they are suitable for use in a certificate.
func normalizeHosts(hosts []string) ([]string, error) {
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if !isASCII(h) {
			var err error
			h, err = idna.ToASCII(h)
			if err != nil {
				return nil, err
			}
		}
		normalized = append(normalized, h)
	}
	return normalized, nil
}

func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

func main() {
	cfg := config{
		Algo:  "P-256",
		Years: 10,
		Org:   "bloomd autogenerated cert",
	}
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] [cert key]"
	args, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) {
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Default to the bloomd RPC certificate and key paths when they are not
	// specified.
	certname := filepath.Join(defaultHomeDir, "rpc.cert")
	keyname := filepath.Join(defaultHomeDir, "rpc.key")
	switch len(args) {
	case 0:
	case 2:
		certname, keyname = args[0], args[1]
	default:
		usage(parser)
	}

	if cfg.Years < 1 {
		fatalf("years certificate is valid for must be positive\n")
	}

	hosts, err := normalizeHosts(cfg.Hosts)
	if err != nil {
		fatalf("normalize hosts: %v\n", err)
	}

	// The generated certificate is automatically valid for the hostname and
	// all interface addresses of the machine in addition to the provided
	// extra hosts.
	validUntil := time.Now().Add(time.Hour * 24 * 365 * time.Duration(cfg.Years))
	var cert, key []byte
	switch cfg.Algo {
	case "P-256":
		cert, key, err = certgen.NewTLSCertPair(elliptic.P256(), cfg.Org,
			validUntil, hosts)
	case "P-384":
		cert, key, err = certgen.NewTLSCertPair(elliptic.P384(), cfg.Org,
			validUntil, hosts)
	case "P-521":
		cert, key, err = certgen.NewTLSCertPair(elliptic.P521(), cfg.Org,
			validUntil, hosts)
	case "Ed25519":
		cert, key, err = certgen.NewEd25519TLSCertPair(cfg.Org, validUntil,
			hosts)
	default:
		fmt.Fprintf(os.Stderr, "unknown algorithm %q\n", cfg.Algo)
		usage(parser)
	}
	if err != nil {
		fatalf("generate certificate pair: %v\n", err)
	}

	if !cfg.Force && fileExists(certname) {
		fatalf("certificate file %q already exists\n", certname)
	}
	if !cfg.Force && fileExists(keyname) {
		fatalf("key file %q already exists\n", keyname)
	}

	if err := os.MkdirAll(filepath.Dir(certname), 0700); err != nil {
		fatalf("cannot create certificate directory: %v\n", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyname), 0700); err != nil {
		fatalf("cannot create key directory: %v\n", err)
	}
	if err = os.WriteFile(certname, cert, 0644); err != nil {
		fatalf("cannot write cert: %v\n", err)
	}
	if err = os.WriteFile(keyname, key, 0600); err != nil {
		os.Remove(certname)
		fatalf("cannot write key: %v\n", err)
	}
}
