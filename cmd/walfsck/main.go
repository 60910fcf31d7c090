// walfsck formats, inspects, and recovers a walog block device file.
//
// Usage:
//
//	walfsck --format --device <path> [--log-start N] [--nlog N]
//	walfsck --dump-header --device <path>
//	walfsck --recover --device <path>
//
// Geometry and device path default to the resolved walconfig.Config (project
// .walog.json, global config, or built-in defaults); flags override.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"

	"github.com/loggedfs/walog/internal/devlock"
	"github.com/loggedfs/walog/internal/walconfig"
	"github.com/loggedfs/walog/pkg/blockdev"
	"github.com/loggedfs/walog/pkg/bufcache"
	"github.com/loggedfs/walog/pkg/wal"
)

// superblock is the fixed log-region geometry walfsck formats a device with:
// the log starts immediately after the boot/super block, at logStart, and
// spans nLog blocks (one header block plus LOGSIZE data slots).
type superblock struct {
	logStart uint32
	nLog     uint32
}

func (s superblock) LogStart() uint32 { return s.logStart }
func (s superblock) NLog() uint32     { return s.nLog }

// geometryFile is written alongside a formatted device and records the log
// region's position. Nothing reads it back: --dump-header and --recover take
// the position from --log-start/--nlog, and cmd/walshell uses fixed values.
type geometryFile struct {
	LogStart uint32 `json:"log_start"`
	NLog     uint32 `json:"nlog"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Environ()))
}

func run(args, env []string) int {
	fs := pflag.NewFlagSet("walfsck", pflag.ContinueOnError)

	var (
		devicePath  string
		configPath  string
		logStart    uint32
		nLog        uint32
		doFormat    bool
		doDump      bool
		doRecover   bool
		bsize       int
		logsize     int
		maxopblocks int
	)

	fs.StringVar(&devicePath, "device", "", "path to the device file")
	fs.StringVar(&configPath, "config", "", "explicit config file path")
	fs.Uint32Var(&logStart, "log-start", 2, "first block of the log region")
	fs.Uint32Var(&nLog, "nlog", 31, "number of blocks in the log region (1 header + LOGSIZE slots)")
	fs.BoolVar(&doFormat, "format", false, "format the device: write a clean header and geometry sidecar")
	fs.BoolVar(&doDump, "dump-header", false, "print the current log header")
	fs.BoolVar(&doRecover, "recover", false, "run recovery unconditionally and report the result")
	fs.IntVar(&bsize, "bsize", 0, "block size in bytes (overrides config)")
	fs.IntVar(&logsize, "logsize", 0, "max logged blocks per commit (overrides config)")
	fs.IntVar(&maxopblocks, "maxopblocks", 0, "max blocks per transaction (overrides config)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 2
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	cfg, _, err := walconfig.LoadConfig(workDir, configPath, walconfig.Config{
		DevicePath:  devicePath,
		BSIZE:       bsize,
		LOGSIZE:     logsize,
		MAXOPBLOCKS: maxopblocks,
	}, devicePath != "", env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	params := wal.Params{BSIZE: cfg.BSIZE, LOGSIZE: cfg.LOGSIZE, MAXOPBLOCKS: cfg.MAXOPBLOCKS}
	sb := superblock{logStart: logStart, nLog: nLog}

	switch {
	case doFormat:
		return runFormat(cfg.DevicePath, sb, params)
	case doDump:
		return runDumpHeader(cfg.DevicePath, params, logStart)
	case doRecover:
		return runRecover(cfg.DevicePath, sb, params)
	default:
		fmt.Fprintln(os.Stderr, "error: one of --format, --dump-header, --recover is required")

		return 2
	}
}

func runFormat(devicePath string, sb superblock, params wal.Params) int {
	err := devlock.WithDeviceLock(devicePath, func() error {
		dev, openErr := blockdev.OpenReal(devicePath, params.BSIZE)
		if openErr != nil {
			return openErr
		}
		defer dev.Close()

		if truncErr := dev.Truncate(int(sb.logStart + sb.nLog)); truncErr != nil {
			return truncErr
		}

		cache := bufcache.New(dev, params.BSIZE, 0)

		// Init writes a clean header as part of recovering an all-zero log
		// region: n == 0, nothing to install.
		wal.Init(cache, sb, params)

		geom := geometryFile{LogStart: sb.logStart, NLog: sb.nLog}

		data, marshalErr := json.MarshalIndent(geom, "", "  ")
		if marshalErr != nil {
			return marshalErr
		}

		return atomic.WriteFile(devicePath+".geometry.json", bytes.NewReader(data))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	fmt.Printf("formatted %s: log_start=%d nlog=%d bsize=%d logsize=%d maxopblocks=%d\n",
		devicePath, sb.logStart, sb.nLog, params.BSIZE, params.LOGSIZE, params.MAXOPBLOCKS)

	return 0
}

func runDumpHeader(devicePath string, params wal.Params, logStart uint32) int {
	dev, err := blockdev.OpenReal(devicePath, params.BSIZE)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}
	defer dev.Close()

	buf := make([]byte, params.BSIZE)
	if err := dev.ReadBlock(logStart, buf); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	header, err := wal.InspectHeader(buf, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	fmt.Printf("n=%d\n", header.N)

	for i := int32(0); i < header.N; i++ {
		fmt.Printf("slot %d -> block %d\n", i, header.Block[i])
	}

	return 0
}

func runRecover(devicePath string, sb superblock, params wal.Params) int {
	err := devlock.WithDeviceLock(devicePath, func() error {
		dev, openErr := blockdev.OpenReal(devicePath, params.BSIZE)
		if openErr != nil {
			return openErr
		}
		defer dev.Close()

		cache := bufcache.New(dev, params.BSIZE, 0)

		// Init always recovers before returning; any logged transaction
		// from a previous crash is installed or discarded here.
		wal.Init(cache, sb, params)

		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	fmt.Printf("recovered %s\n", devicePath)

	return 0
}
