// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"streamcanon/internal/canon"
	"streamcanon/internal/diagnostic"
	"streamcanon/internal/streamir"
)

func main() {
	startTime := time.Now()

	m := buildSampleModule()

	if err := streamir.Verify(m); err != nil {
		color.Red("module failed verification before canonicalization: %v", err)
		os.Exit(1)
	}

	beforeOps := countOps(m)

	reporter := diagnostic.NewReporter(os.Stdout)
	if err := canon.Run(m); err != nil {
		reporter.Report(diagnostic.FromError(err))
		reporter.Flush()
		color.Red("canonicalization failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	if err := streamir.Verify(m); err != nil {
		reporter.Report(diagnostic.FromError(err))
		reporter.Flush()
		color.Red("module failed verification after canonicalization: %v", err)
		os.Exit(1)
	}

	afterOps := countOps(m)
	duration := formatDuration(time.Since(startTime))

	color.Cyan("module %q: %d operations before, %d after", m.Name, beforeOps, afterOps)
	color.Green("Successfully canonicalized in %s", duration)
}

// buildSampleModule constructs a small module exercising the
// canonicalizer's headline rewrites: a redundant subview, a chain of
// transfers, a duplicated timepoint join, a constant-shaped resource.pack,
// and a constant resource forced through copy-on-write by two tied writers.
func buildSampleModule() *streamir.Module {
	m := streamir.NewModule("sample")
	block := m.EntryBlock()
	bld := streamir.NewBuilder(block)
	loc := streamir.Location{File: "sample.ir", Line: 1}

	sizeConst := bld.ConstIndex(loc, 256)
	zero := bld.ConstIndex(loc, 0)
	fillValue := bld.ConstIndex(loc, 0)

	// A splat feeding a same-size subview: the subview folds away.
	splat := bld.AsyncSplat(loc, streamir.Transient, fillValue, sizeConst)
	_ = bld.ResourceSubview(loc, splat, zero, sizeConst)

	// A transfer chain whose final lifetime (External) differs from the
	// splat's (Transient), so the chain keeps both hops.
	hostAffinity := &streamir.AffinityAttr{Name: "host"}
	deviceAffinity := &streamir.AffinityAttr{Name: "device0"}
	stagingAffinity := &streamir.AffinityAttr{Name: "device0-staging"}
	t1 := bld.AsyncTransfer(loc, splat, sizeConst, streamir.Staging, hostAffinity, stagingAffinity)
	t2 := bld.AsyncTransfer(loc, t1, sizeConst, streamir.External, stagingAffinity, deviceAffinity)

	// A join with a duplicate and an always-ready operand.
	imm := bld.TimepointImmediate(loc)
	tp1 := bld.TimepointImmediate(loc)
	joined := bld.TimepointJoin(loc, []*streamir.Value{tp1, tp1, imm})

	awaited := bld.TimepointAwait(loc, joined, []*streamir.Value{t2}, []*streamir.Value{sizeConst})

	// A resource.pack with more than one slice (left for the allocator) and
	// an explicit base offset. Its results are unused here, so the driver
	// erases it as dead code before the base-offset rewrite can apply.
	sizeA := bld.ConstIndex(loc, 64)
	sizeB := bld.ConstIndex(loc, 128)
	baseOffset := bld.ConstIndex(loc, 16)
	_, _ = bld.ResourcePack(loc, []*streamir.Value{sizeA, sizeB}, baseOffset)

	// A constant resource written by two tied ops: copy-on-write must
	// clone before each write since a Constant may never mutate in place.
	constants := bld.ResourceConstants(loc, []*streamir.Value{sizeConst})
	c := constants[0]
	filled1 := bld.AsyncFill(loc, c, sizeConst, zero, sizeConst, fillValue)
	filled2 := bld.AsyncFill(loc, c, sizeConst, zero, sizeConst, fillValue)

	bld.Return(loc, append(awaited, filled1, filled2))
	return m
}

func countOps(m *streamir.Module) int {
	n := 0
	for _, b := range m.Body().Blocks() {
		n += len(b.Operations())
	}
	return n
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
