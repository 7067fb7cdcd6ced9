// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Command dxwifi-tx reads a byte stream from stdin (or --input) and
// transmits it over a monitor-mode 802.11 interface, optionally
// erasure-coding it first (spec.md §6).
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	dxwifi "github.com/AlexanderJDupree/dxwifi-prototype"
	"github.com/AlexanderJDupree/dxwifi-prototype/fec"
	"github.com/AlexanderJDupree/dxwifi-prototype/frame"
	"github.com/AlexanderJDupree/dxwifi-prototype/link"
	"github.com/AlexanderJDupree/dxwifi-prototype/transmit"
	"github.com/spf13/pflag"
)

// traceVerbosity is the -v count at which per-frame hexdumps are logged,
// matching the original's highest log_hexdump trace level.
const traceVerbosity = 3

const (
	exitOK = iota
	exitUsage
	exitDriver
	exitTransmit
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dev           = pflag.String("dev", "mon0", "monitor-mode interface to inject on")
		input         = pflag.String("input", "", "input file; defaults to stdin")
		blockSize     = pflag.Int("blocksize", 1024, "payload bytes per air frame")
		timeout       = pflag.Duration("timeout", 0, "end the transmission if no input read completes within this long (0 = unbounded)")
		rate          = pflag.Uint8("rate", 1, "radiotap bitrate, in Mbps")
		cfp           = pflag.Bool("cfp", false, "set the radiotap CFP flag")
		shortPreamble = pflag.Bool("short-preamble", false, "set the radiotap short-preamble flag")
		wep           = pflag.Bool("wep", false, "set the radiotap WEP flag")
		frag          = pflag.Bool("frag", false, "set the radiotap fragmentation flag")
		noFCS         = pflag.Bool("nofcs", false, "do not ask the radio to append an FCS")
		ack           = pflag.Bool("ack", false, "tx expects an ACK frame (clears the default no-ack TX flag)")
		sequence      = pflag.Bool("sequence", false, "tx includes a preconfigured sequence id (radiotap TX flag)")
		ordered       = pflag.Bool("ordered", false, "tx should not be reordered (radiotap TX flag)")
		addr1         = pflag.String("addr1", frame.BroadcastAddr.String(), "receiver address")
		addr2         = pflag.String("addr2", "aa:aa:aa:aa:aa:aa", "transmitter address")
		addr3         = pflag.String("addr3", frame.BroadcastAddr.String(), "BSSID address")
		useFEC        = pflag.Bool("fec", false, "erasure-code the input before transmission")
		codeRate      = pflag.Float64("code-rate", 0.8, "FEC code rate (source symbols / total symbols)")
		verbose       = pflag.CountP("verbose", "v", "increase logging verbosity (repeatable)")
	)
	pflag.Parse()

	logger := log.New(os.Stderr, "dxwifi-tx: ", log.LstdFlags)
	if *verbose > 0 {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	a1, err := frame.ParseHardwareAddr(*addr1)
	if err != nil {
		logger.Printf("invalid --addr1: %v", err)
		return exitUsage
	}
	a2, err := frame.ParseHardwareAddr(*addr2)
	if err != nil {
		logger.Printf("invalid --addr2: %v", err)
		return exitUsage
	}
	a3, err := frame.ParseHardwareAddr(*addr3)
	if err != nil {
		logger.Printf("invalid --addr3: %v", err)
		return exitUsage
	}

	in := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Printf("open input: %v", err)
			return exitUsage
		}
		defer f.Close()
		in = f
	}

	var radiotapFlags uint8
	if *cfp {
		radiotapFlags |= frame.FlagCFP
	}
	if *shortPreamble {
		radiotapFlags |= frame.FlagShortPreamble
	}
	if *wep {
		radiotapFlags |= frame.FlagWEP
	}
	if *frag {
		radiotapFlags |= frame.FlagFragmentation
	}
	if !*noFCS {
		radiotapFlags |= frame.FlagFCSAtEnd
	}

	// No-ack is the default for a fire-and-forget uplink; --ack clears it.
	txFlags := frame.TxFlagNoAck
	if *ack {
		txFlags &^= frame.TxFlagNoAck
	}
	if *sequence {
		txFlags |= frame.TxFlagNoSeqNo
	}
	if *ordered {
		txFlags |= frame.TxFlagOrder
	}

	driver, err := link.OpenMonitor(link.Config{Device: *dev, SnapLen: 65535, Promiscuous: true, BufferTimeout: time.Millisecond})
	if err != nil {
		logger.Printf("open %s: %v", *dev, err)
		return exitDriver
	}
	defer driver.Close()

	tx, err := transmit.New(driver, transmit.Config{
		BlockSize:    *blockSize,
		RadiotapFlag: radiotapFlags,
		RateMbps:     *rate,
		TxFlags:      txFlags,
		FC:           frame.DefaultFrameControl(),
		Addr1:        a1,
		Addr2:        a2,
		Addr3:        a3,
		ReadTimeout:  *timeout,
		Logger:       logger,
	})
	if err != nil {
		logger.Printf("init transmitter: %v", err)
		return exitUsage
	}
	if *verbose >= traceVerbosity {
		_ = tx.Attach(func(f *frame.Frame, frameNo uint32) error {
			logger.Printf("tx frame %d:\n%s", frameNo, hex.Dump(f.Bytes()[:frame.WireLength(f.PayloadLen())]))
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	var src io.Reader = in
	if *useFEC {
		raw, err := io.ReadAll(in)
		if err != nil {
			logger.Printf("read input: %v", err)
			return exitUsage
		}
		enc := fec.NewEncoder(fec.NewRSCodec())
		wire, err := enc.Encode(raw, *codeRate)
		if err != nil {
			logger.Printf("fec encode: %v", err)
			return exitUsage
		}
		src = bytes.NewReader(wire)
	}

	logger.Printf("dxwifi-tx v%d.%d.%d-%s", dxwifi.VersionMajor, dxwifi.VersionMinor, dxwifi.VersionPatch, dxwifi.VersionRelease)
	stats, err := tx.Start(ctx, src)
	switch {
	case err == nil:
	case errors.Is(err, transmit.ErrReadTimeout), errors.Is(err, context.Canceled):
		// Timeout and interrupt are clean terminations; the EOT has been
		// sent either way (spec.md §6 exit codes).
		logger.Printf("session ended: %v", err)
	default:
		logger.Printf("transmit: %v", err)
		return exitTransmit
	}
	logger.Printf("sent %d frames, %d bytes, %d inject errors", stats.FramesSent, stats.BytesSent, stats.InjectErrors)
	if driverStats, statErr := driver.Stats(); statErr == nil {
		logger.Printf("driver stats: recv=%d drop=%d ifdrop=%d",
			driverStats.PacketsReceived, driverStats.PacketsDropped, driverStats.PacketsIfDropped)
	}
	return exitOK
}
