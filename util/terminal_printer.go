package util

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TerminalPrinter periodically redraws one terminal line per registered
// output. Each output is an io.Writer that keeps only the latest line
// written to it, so concurrent experiment workers can stream progress
// without interleaving.
type TerminalPrinter struct {
	outputs   []*ParallelOutput
	frequency time.Duration
	doneCh    chan struct{}

	writer *uilive.Writer
}

func NewTerminalPrinter(frequency time.Duration) *TerminalPrinter {
	return &TerminalPrinter{
		outputs:   make([]*ParallelOutput, 0),
		frequency: frequency,
		doneCh:    make(chan struct{}),

		writer: uilive.New(),
	}
}

// NewOutput registers a new line on the terminal. Not safe to call after
// Start.
func (p *TerminalPrinter) NewOutput() *ParallelOutput {
	out := &ParallelOutput{writer: p.writer.Newline()}
	p.outputs = append(p.outputs, out)
	return out
}

func (p *TerminalPrinter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.doneCh:
				p.print()
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

func (p *TerminalPrinter) Stop() {
	close(p.doneCh)
}

// Write puts a line above the registered outputs, typically a header.
func (p *TerminalPrinter) Write(out string) {
	fmt.Fprintf(p.writer, "%s", out)
	p.writer.Flush()
}

func (p *TerminalPrinter) print() {
	for _, output := range p.outputs {
		fmt.Fprintln(output.writer, output.Get())
	}
	p.writer.Flush()
}

// ParallelOutput retains the most recent line written to it.
type ParallelOutput struct {
	mu        sync.Mutex
	printable string
	writer    io.Writer
}

var _ io.Writer = &ParallelOutput{}

func (p *ParallelOutput) Write(b []byte) (int, error) {
	p.Set(strings.TrimRight(string(b), "\n"))
	return len(b), nil
}

func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
