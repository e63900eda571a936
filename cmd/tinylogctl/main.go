// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command tinylogctl is a debug inspection tool for a tinylog feed
// store directory: it can mint a fresh ed25519 key pair, dump a
// feed's packet-type summary, or render the version graph rooted at
// a file feed.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/luxfi/tinylog/crypto"
	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/store"
	"github.com/luxfi/tinylog/version"
)

var logger = slog.Default().With("module", "tinylogctl")

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "genkey":
		err = cmdGenKey()
	case "show":
		err = cmdShow(args[1:])
	case "graph":
		err = cmdGraph(args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tinylogctl <genkey|show|graph> [args]")
	fmt.Fprintln(os.Stderr, "  genkey                  print a fresh ed25519 fid/skey pair")
	fmt.Fprintln(os.Stderr, "  show <dir> <fid-hex>    print a feed's packet-type summary")
	fmt.Fprintln(os.Stderr, "  graph <dir> <fid-hex>   print the version graph rooted at a file feed")
}

func cmdGenKey() error {
	fid, skey, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	fmt.Printf("fid:  %s\n", fid)
	fmt.Printf("skey: %s\n", hexString(skey[:]))
	return nil
}

func cmdShow(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("show: want <dir> <fid-hex>")
	}
	fs, fid, err := openFeedStore(args[0], args[1])
	if err != nil {
		return err
	}
	feed, err := store.Open(fs, fid)
	if err != nil {
		return fmt.Errorf("opening feed %s: %w", fid, err)
	}
	fmt.Print(feed.DebugString())
	return nil
}

func cmdGraph(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("graph: want <dir> <fid-hex>")
	}
	fs, fid, err := openFeedStore(args[0], args[1])
	if err != nil {
		return err
	}
	feed, err := store.Open(fs, fid)
	if err != nil {
		return fmt.Errorf("opening feed %s: %w", fid, err)
	}
	out, err := version.DebugGraphString(feed)
	if err != nil {
		return fmt.Errorf("rendering version graph for %s: %w", fid, err)
	}
	fmt.Print(out)
	return nil
}

func openFeedStore(dir, fidHex string) (*store.DiskFS, ids.FID, error) {
	fid, err := ids.FIDFromHex(fidHex)
	if err != nil {
		return nil, ids.FID{}, fmt.Errorf("parsing fid %q: %w", fidHex, err)
	}
	fs, err := store.NewDiskFS(dir)
	if err != nil {
		return nil, ids.FID{}, fmt.Errorf("opening store at %s: %w", dir, err)
	}
	return fs, fid, nil
}

func hexString(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0f]
	}
	return string(out)
}
