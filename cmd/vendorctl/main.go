// Command vendorctl manages the vendor surplus registry stored in a local
// database file.
//
// Usage:
//
//	vendorctl [-db file] [-backend bolt|mmap] [-v] vendor add -name N -phone P -location L
//	vendorctl vendor get|delete ID
//	vendorctl vendor update ID -name N -phone P -location L
//	vendorctl vendor list
//	vendorctl excess add -vendor ID -name N -amount A -date D
//	vendorctl excess get|delete ID
//	vendorctl excess update ID -vendor ID -name N -amount A -date D
//	vendorctl excess list
//	vendorctl stats
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/andreyvit/stabledb"
	"github.com/andreyvit/stabledb/vendors"
)

var errUsage = errors.New("usage")

func main() {
	dbPath := flag.String("db", "vendors.db", "database file")
	backend := flag.String("backend", "bolt", "storage backend: bolt or mmap")
	verbose := flag.Bool("v", false, "log every mutation")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	mem, err := openMemory(*backend, *dbPath)
	if err != nil {
		logger.Error("cannot open memory", "backend", *backend, "path", *dbPath, "err", err)
		os.Exit(1)
	}
	db, err := stabledb.Open(mem, vendors.Schema(), stabledb.Options{
		Logger:  logger,
		Verbose: *verbose,
	})
	if err != nil {
		logger.Error("cannot open database", "path", *dbPath, "err", err)
		os.Exit(1)
	}

	result, err := run(db, flag.Args())
	if cerr := db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	switch {
	case errors.Is(err, errUsage):
		usage()
		os.Exit(2)
	case errors.Is(err, stabledb.ErrNotFound):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	case err != nil:
		logger.Error("failed", "err", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("cannot write output", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] <vendor|excess> <add|get|update|delete|list> [args]\n       %s [options] stats\n\nOptions:\n", os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func openMemory(backend, path string) (stabledb.Memory, error) {
	switch backend {
	case "bolt":
		return stabledb.OpenBoltMemory(path, stabledb.BoltOptions{})
	case "mmap":
		return stabledb.OpenFileMemory(path, stabledb.FileOptions{})
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func run(db *stabledb.DB, args []string) (any, error) {
	if len(args) == 1 && args[0] == "stats" {
		return db.Stats(), nil
	}
	if len(args) < 2 {
		return nil, errUsage
	}
	svc := vendors.NewService(db)
	kind, op, rest := args[0], args[1], args[2:]
	switch kind {
	case "vendor":
		return runVendor(svc, op, rest)
	case "excess":
		return runExcess(svc, op, rest)
	default:
		return nil, errUsage
	}
}

func runVendor(svc *vendors.Service, op string, args []string) (any, error) {
	var p vendors.VendorPayload
	fs := flag.NewFlagSet("vendor "+op, flag.ContinueOnError)
	fs.StringVar(&p.Name, "name", "", "vendor name")
	fs.StringVar(&p.Phone, "phone", "", "phone number")
	fs.StringVar(&p.CurrentLocation, "location", "", "current location")

	switch op {
	case "add":
		if err := parseFlags(fs, args); err != nil {
			return nil, err
		}
		return svc.AddVendor(&p)
	case "list":
		if len(args) != 0 {
			return nil, errUsage
		}
		return svc.ListVendors()
	}

	id, rest, err := parseID(args)
	if err != nil {
		return nil, err
	}
	switch op {
	case "get":
		if len(rest) != 0 {
			return nil, errUsage
		}
		return svc.GetVendor(id)
	case "delete":
		if len(rest) != 0 {
			return nil, errUsage
		}
		return svc.DeleteVendor(id)
	case "update":
		if err := parseFlags(fs, rest); err != nil {
			return nil, err
		}
		return svc.UpdateVendor(id, &p)
	default:
		return nil, errUsage
	}
}

func runExcess(svc *vendors.Service, op string, args []string) (any, error) {
	var p vendors.ExcessPayload
	fs := flag.NewFlagSet("excess "+op, flag.ContinueOnError)
	fs.Uint64Var(&p.VendorID, "vendor", 0, "vendor id")
	fs.StringVar(&p.Name, "name", "", "product name")
	fs.StringVar(&p.Amount, "amount", "", "amount in kg")
	fs.StringVar(&p.Date, "date", "", "date of the excess")

	switch op {
	case "add":
		if err := parseFlags(fs, args); err != nil {
			return nil, err
		}
		return svc.AddExcess(&p)
	case "list":
		if len(args) != 0 {
			return nil, errUsage
		}
		return svc.ListExcess()
	}

	id, rest, err := parseID(args)
	if err != nil {
		return nil, err
	}
	switch op {
	case "get":
		if len(rest) != 0 {
			return nil, errUsage
		}
		return svc.GetExcess(id)
	case "delete":
		if len(rest) != 0 {
			return nil, errUsage
		}
		return svc.DeleteExcess(id)
	case "update":
		if err := parseFlags(fs, rest); err != nil {
			return nil, err
		}
		return svc.UpdateExcess(id, &p)
	default:
		return nil, errUsage
	}
}

// parseFlags rejects unknown flags and leftover positional arguments.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: unexpected arguments %q", errUsage, fs.Args())
	}
	return nil
}

func parseID(args []string) (uint64, []string, error) {
	if len(args) == 0 {
		return 0, nil, errUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid id %q", errUsage, args[0])
	}
	return id, args[1:], nil
}
