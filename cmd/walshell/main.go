// walshell is an interactive REPL for exercising a walog log against a
// scratch device file, useful for manual testing of begin/write/end
// sequences without writing a Go test.
//
// Usage:
//
//	walshell [device-path]
//
// Commands:
//
//	begin                 Start a transaction (admits via Log.Begin)
//	write <block> <byte>  Fill block's data with byte and log_write it
//	read <block>          Print the first byte of block's current data
//	end                   Commit the active transaction (Log.End)
//	help                  Show this help
//	exit / quit           Exit
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/loggedfs/walog/pkg/blockdev"
	"github.com/loggedfs/walog/pkg/bufcache"
	"github.com/loggedfs/walog/pkg/wal"
)

// Fixed demo geometry: BSIZE=1024, LOGSIZE=30, MAXOPBLOCKS=10, log region
// starts at block 2 and spans 31 blocks (1 header + 30 slots).
const (
	demoBSIZE       = 1024
	demoLogSize     = 30
	demoMaxOpBlocks = 10
	demoLogStart    = 2
	demoNLog        = demoLogSize + 1
	demoNBlocks     = demoLogStart + demoNLog + 16 // a little headroom past the log for home blocks
)

type superblock struct{}

func (superblock) LogStart() uint32 { return demoLogStart }
func (superblock) NLog() uint32     { return demoNLog }

func main() {
	os.Exit(run())
}

func run() int {
	devicePath := "walshell.img"
	if len(os.Args) > 1 {
		devicePath = os.Args[1]
	}

	dev, err := blockdev.OpenReal(devicePath, demoBSIZE)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}
	defer dev.Close()

	if err := dev.Truncate(demoNBlocks); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	cache := bufcache.New(dev, demoBSIZE, 0)
	params := wal.Params{BSIZE: demoBSIZE, LOGSIZE: demoLogSize, MAXOPBLOCKS: demoMaxOpBlocks}
	log := wal.Init(cache, superblock{}, params)

	return newShell(log, cache, devicePath).runREPL()
}

type shell struct {
	log        *wal.Log
	cache      *bufcache.Cache
	devicePath string
	inTxn      bool
	liner      *liner.State
}

func newShell(log *wal.Log, cache *bufcache.Cache, devicePath string) *shell {
	return &shell{log: log, cache: cache, devicePath: devicePath}
}

func (s *shell) runREPL() int {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)

	fmt.Printf("walshell - %s (bsize=%d logsize=%d maxopblocks=%d)\n", s.devicePath, demoBSIZE, demoLogSize, demoMaxOpBlocks)
	fmt.Println("Type 'help' for available commands.")

	for {
		line, err := s.liner.Prompt("walshell> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				return 0
			}

			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)

			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			return 0

		case "help", "?":
			s.printHelp()

		case "begin":
			s.cmdBegin()

		case "end":
			s.cmdEnd()

		case "write":
			s.cmdWrite(args)

		case "read":
			s.cmdRead(args)

		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *shell) printHelp() {
	fmt.Println("  begin                 start a transaction")
	fmt.Println("  write <block> <byte>  fill block with byte and log_write it")
	fmt.Println("  read <block>          print block's first data byte")
	fmt.Println("  end                   commit the active transaction")
	fmt.Println("  help                  show this help")
	fmt.Println("  exit / quit           exit")
}

func (s *shell) cmdBegin() {
	if s.inTxn {
		fmt.Println("already in a transaction")

		return
	}

	s.log.Begin()
	s.inTxn = true
	fmt.Println("ok")
}

func (s *shell) cmdEnd() {
	if !s.inTxn {
		fmt.Println("not in a transaction")

		return
	}

	s.log.End()
	s.inTxn = false
	fmt.Println("ok")
}

func (s *shell) cmdWrite(args []string) {
	if !s.inTxn {
		fmt.Println("must begin a transaction first")

		return
	}

	if len(args) != 2 {
		fmt.Println("usage: write <block> <byte>")

		return
	}

	blockno, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Printf("bad block number: %v\n", err)

		return
	}

	value, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		fmt.Printf("bad byte value: %v\n", err)

		return
	}

	buf, err := s.cache.Bread(uint32(blockno))
	if err != nil {
		fmt.Printf("bread failed: %v\n", err)

		return
	}

	for i := range buf.Data {
		buf.Data[i] = byte(value)
	}

	s.log.LogWrite(buf)
	s.cache.Brelse(buf)
	fmt.Println("ok")
}

func (s *shell) cmdRead(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: read <block>")

		return
	}

	blockno, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Printf("bad block number: %v\n", err)

		return
	}

	buf, err := s.cache.Bread(uint32(blockno))
	if err != nil {
		fmt.Printf("bread failed: %v\n", err)

		return
	}

	fmt.Printf("block %d: first byte = %d\n", blockno, buf.Data[0])
	s.cache.Brelse(buf)
}
