// ringy is an interactive inspector for a slotring ring.
//
// Usage:
//
//	ringy [-n capacity] [-t timeout-ms]
//
// Commands (in REPL):
//
//	write <text>    Produce one value (acquire, set, release)
//	read <slot>     Open a peek handle on a slot
//	newest          Open a peek handle on the newest filled slot
//	consume         Open a consume handle on the oldest filled slot
//	release <id>    Release an open handle
//	handles         List open handles
//	print           Render the ring state line
//	stats           Show observer values
//	clear           Empty the queue and reset the cursor
//	help            Show this help
//	exit / quit / q Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/slotring/pkg/slotring"
)

// heldHandle is an open handle kept across REPL commands.
type heldHandle struct {
	kind    string
	slot    int
	value   string
	release func()
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	capacity := flag.IntP("capacity", "n", 5, "ring capacity")
	timeoutMillis := flag.IntP("timeout-ms", "t", 1000, "lock timeout in milliseconds")
	flag.Parse()

	ring, err := slotring.New[string](slotring.Options{
		Capacity:    *capacity,
		LockTimeout: time.Duration(*timeoutMillis) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)

	fmt.Printf("ring with %d slots, timeout %dms; 'help' for commands\n", *capacity, *timeoutMillis)

	handles := make(map[int]*heldHandle)
	nextID := 1

	for {
		line, promptErr := ln.Prompt("ringy> ")
		if promptErr != nil {
			if errors.Is(promptErr, io.EOF) || errors.Is(promptErr, liner.ErrPromptAborted) {
				// Drop open handles so the locks are not left held.
				for _, held := range handles {
					held.release()
				}

				return nil
			}

			return promptErr
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ln.AppendHistory(line)

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit", "q":
			for _, held := range handles {
				held.release()
			}

			return nil

		case "help":
			printHelp()

		case "write":
			if len(args) == 0 {
				fmt.Println("usage: write <text>")

				continue
			}

			handle, writeErr := ring.WriteNext()
			if writeErr != nil {
				fmt.Println("write failed:", writeErr)

				continue
			}

			handle.Set(strings.Join(args, " "))

			slot, overwrote := handle.Slot(), handle.Overwrote()
			handle.Release()

			fmt.Printf("wrote slot %d (overwrote=%v)\n", slot, overwrote)

		case "read":
			if len(args) != 1 {
				fmt.Println("usage: read <slot>")

				continue
			}

			slot, parseErr := strconv.Atoi(args[0])
			if parseErr != nil {
				fmt.Println("bad slot index:", args[0])

				continue
			}

			handle, readErr := ring.ReadSlot(slot)
			if readErr != nil {
				fmt.Println("read failed:", readErr)

				continue
			}

			id := nextID
			nextID++
			handles[id] = &heldHandle{kind: "read", slot: handle.Slot(), value: *handle.Value(), release: handle.Release}
			fmt.Printf("handle %d: read slot %d = %q\n", id, handle.Slot(), *handle.Value())

		case "newest":
			handle, peekErr := ring.ReadNewest()
			if peekErr != nil {
				fmt.Println("newest failed:", peekErr)

				continue
			}

			id := nextID
			nextID++
			handles[id] = &heldHandle{kind: "peek", slot: handle.Slot(), value: *handle.Value(), release: handle.Release}
			fmt.Printf("handle %d: peek slot %d = %q\n", id, handle.Slot(), *handle.Value())

		case "consume":
			handle, consumeErr := ring.ConsumeNext()
			if consumeErr != nil {
				fmt.Println("consume failed:", consumeErr)

				continue
			}

			id := nextID
			nextID++
			handles[id] = &heldHandle{kind: "consume", slot: handle.Slot(), value: *handle.Value(), release: handle.Release}
			fmt.Printf("handle %d: consume slot %d = %q\n", id, handle.Slot(), *handle.Value())

		case "release":
			if len(args) != 1 {
				fmt.Println("usage: release <id>")

				continue
			}

			id, parseErr := strconv.Atoi(args[0])
			if parseErr != nil {
				fmt.Println("bad handle id:", args[0])

				continue
			}

			held, ok := handles[id]
			if !ok {
				fmt.Println("no such handle:", id)

				continue
			}

			held.release()
			delete(handles, id)
			fmt.Printf("released %s handle on slot %d\n", held.kind, held.slot)

		case "handles":
			if len(handles) == 0 {
				fmt.Println("no open handles")

				continue
			}

			for id, held := range handles {
				fmt.Printf("  %d: %s slot %d = %q\n", id, held.kind, held.slot, held.value)
			}

		case "print":
			fmt.Println(ring.String())

		case "stats":
			fmt.Printf("size=%d consumable=%d\n", ring.Size(), ring.ConsumableSlots())

			for i := range ring.Size() {
				fmt.Printf("  slot %d: writing=%v readers=%d\n", i, ring.IsWritten(i), ring.ConcurrentReads(i))
			}

		case "clear":
			if len(handles) > 0 {
				fmt.Println("release all handles before clear")

				continue
			}

			if clearErr := ring.Clear(); clearErr != nil {
				fmt.Println("clear failed:", clearErr)

				continue
			}

			fmt.Println("cleared")

		default:
			fmt.Println("unknown command:", cmd)
			printHelp()
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  write <text>     produce one value (acquire, set, release)
  read <slot>      open a peek handle on a slot
  newest           open a peek handle on the newest filled slot
  consume          open a consume handle on the oldest filled slot
  release <id>     release an open handle
  handles          list open handles
  print            render the ring state line
  stats            show observer values
  clear            empty the queue and reset the cursor
  exit             quit
`)
}
