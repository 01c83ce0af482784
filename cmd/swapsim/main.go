// Command swapsim runs the force-eviction scenario (S1) from spec.md §8
// against a configurable replacement policy. It stands in for the out-of-scope
// user-level CLI test harness spec.md §1 assumes given, built the way
// ja7ad-consumption/cmd/consumption/main.go builds its own
// cobra-based, slog-logging command.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"swapkern/backingstore"
	"swapkern/mem"
	"swapkern/metrics"
	"swapkern/pagetable"
	"swapkern/policy"
	"swapkern/proc"
)

var (
	maxPsycPages  int
	maxTotalPages int
	selectionFlag string
)

func main() {
	root := &cobra.Command{
		Use:   "swapsim",
		Short: "Exercise the per-process paging core against a configurable replacement policy",
		Long: `swapsim builds a single simulated process, drives the force-eviction
scenario from spec.md S1 against it, and reports the resulting resident
set, swap store, and fault/eviction counters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	root.Flags().IntVar(&maxPsycPages, "max-psyc-pages", 16, "resident slots per process")
	root.Flags().IntVar(&maxTotalPages, "max-total-pages", 20, "swap slots per process")
	root.Flags().StringVar(&selectionFlag, "selection", "scfifo", "replacement policy: nfua|lapa|scfifo|none")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func parseSelection(s string) (policy.Kind, error) {
	switch strings.ToLower(s) {
	case "nfua":
		return policy.NFUA, nil
	case "lapa":
		return policy.LAPA, nil
	case "scfifo":
		return policy.SCFIFO, nil
	case "none":
		return policy.NONE, nil
	default:
		return 0, fmt.Errorf("unknown selection %q (want nfua|lapa|scfifo|none)", s)
	}
}

func run() error {
	sel, err := parseSelection(selectionFlag)
	if err != nil {
		return err
	}
	if maxTotalPages <= maxPsycPages {
		return fmt.Errorf("max-total-pages (%d) must exceed max-psyc-pages (%d)", maxTotalPages, maxPsycPages)
	}

	cfg := proc.Config{MaxPsycPages: maxPsycPages, MaxTotalPages: maxTotalPages, Selection: sel}
	pt := pagetable.NewTable()
	alloc := mem.NewSimpleAllocator(maxPsycPages + 4)
	backing := backingstore.NewMemStore(maxTotalPages)
	m := metrics.New("swapsim")
	p := proc.New(cfg, pt, alloc, backing, m)

	slog.Info("running force-eviction scenario", "selection", selectionFlag, "max_psyc_pages", maxPsycPages)

	for i := 0; i <= maxPsycPages; i++ {
		va := pagetable.VA(i * mem.PGSIZE)
		if err := touch(p, va); err != nil {
			return fmt.Errorf("touch page %d: %w", i, err)
		}
		e, _ := p.PageTable.Walk(va)
		page := p.FrameAlloc.Dmap(e.PA())
		page[0] = byte(i + 1)
		e.SetAccessed(true)
	}

	for i := 0; i <= maxPsycPages; i++ {
		va := pagetable.VA(i * mem.PGSIZE)
		if err := touch(p, va); err != nil {
			return fmt.Errorf("re-read page %d: %w", i, err)
		}
		e, _ := p.PageTable.Walk(va)
		page := p.FrameAlloc.Dmap(e.PA())
		if page[0] != byte(i+1) {
			return fmt.Errorf("page %d: expected marker %d, got %d", i, i+1, page[0])
		}
	}

	slog.Info("scenario complete",
		"resident", p.Resident.Occupied(),
		"swapped", p.Swap.Occupied(),
		"page_faults", counterValue(m.PageFaults),
		"evictions", counterValue(m.Evictions),
		"swap_reads", counterValue(m.SwapReads),
		"swap_writes", counterValue(m.SwapWrites),
	)
	return nil
}

// touch ensures va is resident, faulting it in from swap (or mapping
// it fresh) exactly as the page-fault handler would on a real Valid=0
// reference.
func touch(p *proc.Proc, va pagetable.VA) error {
	e, ok := p.PageTable.Walk(va)
	switch {
	case !ok:
		if err := p.AllocPage(va); err != 0 {
			return err
		}
	case e.PagedOut():
		if err := p.LoadPage(va); err != 0 {
			return err
		}
	}
	return nil
}

func counterValue(c interface{ Write(*dto.Metric) error }) float64 {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
