// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Command dxwifi-rx captures a DxWiFi session off a monitor-mode 802.11
// interface and writes the reassembled payload to stdout (or --output),
// optionally reversing FEC erasure coding first (spec.md §6).
package main

import (
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
	"github.com/AlexanderJDupree/dxwifi-prototype/link"
	"github.com/AlexanderJDupree/dxwifi-prototype/receive"
	"github.com/spf13/pflag"
)

// traceVerbosity is the -v count at which per-frame hexdumps are logged,
// matching the original's highest log_hexdump trace level.
const traceVerbosity = 3

const (
	exitOK = iota
	exitUsage
	exitDriver
	exitReceive
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dev           = pflag.String("dev", "mon0", "monitor-mode interface to capture on")
		output        = pflag.String("output", "", "output file; defaults to stdout")
		appendOut     = pflag.Bool("append", false, "append to --output instead of truncating it")
		blockSize     = pflag.Int("blocksize", 1024, "payload bytes per air frame")
		timeout       = pflag.Duration("timeout", 0, "abort the capture if no frame is dispatched within this long (0 = unbounded)")
		snapLen       = pflag.Int("snaplen", 65535, "capture snapshot length")
		bufferTimeout = pflag.Duration("buffer-timeout", 10*time.Millisecond, "libpcap read buffer timeout")
		filter        = pflag.String("filter", "wlan addr2 aa:aa:aa:aa:aa:aa", "BPF filter expression restricting captured frames")
		noOptimize    = pflag.Bool("no-optimize", false, "disable BPF filter optimization (accepted for CLI parity; libpcap always optimizes through gopacket)")
		dispatchCount = pflag.Int("dispatch-count", 0, "stop after this many data frames (0 = unbounded)")
		ordered       = pflag.Bool("ordered", true, "reorder frames by sequence number before writing, filling gaps with noise")
		useFEC        = pflag.Bool("fec", false, "reverse FEC erasure coding on the reassembled stream")
		verbose       = pflag.CountP("verbose", "v", "increase logging verbosity (repeatable)")
	)
	pflag.Parse()
	_ = noOptimize // accepted for CLI parity; see DESIGN.md

	logger := log.New(os.Stderr, "dxwifi-rx: ", log.LstdFlags)
	if *verbose > 0 {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	out := os.Stdout
	if *output != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if *appendOut {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(*output, flags, 0o644)
		if err != nil {
			logger.Printf("open output: %v", err)
			return exitUsage
		}
		defer f.Close()
		out = f
	}

	driver, err := link.OpenMonitor(link.Config{
		Device:        *dev,
		SnapLen:       *snapLen,
		Promiscuous:   true,
		BufferTimeout: *bufferTimeout,
	})
	if err != nil {
		logger.Printf("open %s: %v", *dev, err)
		return exitDriver
	}
	defer driver.Close()

	if err := driver.SetBPFFilter(*filter); err != nil {
		logger.Printf("set filter: %v", err)
		return exitUsage
	}

	cfg := receive.Config{
		BlockSize:       *blockSize,
		Ordered:         *ordered,
		MaxFrames:       *dispatchCount,
		DispatchTimeout: *timeout,
	}
	if *verbose >= traceVerbosity {
		cfg.OnCapture = func(raw []byte) {
			logger.Printf("rx frame:\n%s", hex.Dump(raw))
		}
	}
	rx, err := receive.New(driver, cfg)
	if err != nil {
		logger.Printf("init receiver: %v", err)
		return exitUsage
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	logger.Printf("dxwifi-rx v%d.%d.%d-%s", dxwifi.VersionMajor, dxwifi.VersionMinor, dxwifi.VersionPatch, dxwifi.VersionRelease)

	var dst io.Writer = out
	var buf *os.File
	if *useFEC {
		tmp, err := os.CreateTemp("", "dxwifi-rx-*")
		if err != nil {
			logger.Printf("stage fec buffer: %v", err)
			return exitUsage
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()
		buf = tmp
		dst = tmp
	}

	stats, err := rx.Start(ctx, dst)
	switch {
	case err == nil:
	case errors.Is(err, receive.ErrDispatchTimeout), errors.Is(err, context.Canceled):
		// Timeout and interrupt are clean terminations; staged frames have
		// already been drained to the output (spec.md §6 exit codes).
		logger.Printf("session ended: %v", err)
	default:
		logger.Printf("receive: %v", err)
		return exitReceive
	}
	logger.Printf("captured %d frames, %d bytes, %d gaps filled", stats.FramesCaptured, stats.BytesWritten, stats.GapsFilled)
	if driverStats, statErr := driver.Stats(); statErr == nil {
		logger.Printf("driver stats: recv=%d drop=%d ifdrop=%d",
			driverStats.PacketsReceived, driverStats.PacketsDropped, driverStats.PacketsIfDropped)
	}

	if *useFEC {
		if _, err := buf.Seek(0, io.SeekStart); err != nil {
			logger.Printf("seek fec buffer: %v", err)
			return exitReceive
		}
		encoded, err := io.ReadAll(buf)
		if err != nil {
			logger.Printf("read fec buffer: %v", err)
			return exitReceive
		}
		dec := fec.NewDecoder(fec.NewRSCodec())
		decoded, err := dec.Decode(encoded)
		if err != nil {
			logger.Printf("fec decode: %v", err)
			return exitReceive
		}
		if _, err := out.Write(decoded); err != nil {
			logger.Printf("write output: %v", err)
			return exitReceive
		}
	}
	return exitOK
}
