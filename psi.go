package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"psi/crs"
	"psi/dump"
	"psi/pathindex"
	"psi/pathseq"
	"psi/seedfinder"
	"psi/seqgraph"
	"psi/spgemm"
	"psi/utils"

	"github.com/jwaldrip/odin/cli"
)

var app = cli.New("1.0.0", "Pan-genome seed indexer for sequence variation graphs", func(c cli.Command) {})

func init() {
	app.DefineStringFlag("p", "psi_index", "prefix of the index files")
	app.DefineStringFlag("g", "graph.psg", "sequence graph file")
	app.DefineIntFlag("t", 1, "number of CPU used")
	app.DefineStringFlag("tmpdir", "", "directory for Buffered matrix temp files")

	ip := app.DefineSubCommand("index-paths", "generate haplotype paths, index them and emit uncovered seed loci", indexPaths)
	{
		ip.DefineIntFlag("l", 15, "seed length")
		ip.DefineIntFlag("e", 3, "seed step on each node")
		ip.DefineIntFlag("n", 64, "number of haplotype paths to generate")
		ip.DefineIntFlag("ctx", 0, "decomposition context size")
		ip.DefineBoolFlag("no-patched", false, "store genome-wide haplotypes instead of patches")
		ip.DefineBoolFlag("reversed", false, "index the reversed rendition of the path sequences")
		ip.DefineIntFlag("seed", 1, "random seed of the path generator")
	}
	insp := app.DefineSubCommand("inspect-paths", "dump an existing path index for external tooling", inspectPaths)
	{
		insp.DefineIntFlag("l", 15, "seed length")
		insp.DefineIntFlag("e", 3, "seed step on each node")
		insp.DefineStringFlag("o", "paths_out", "output file prefix")
		insp.DefineStringFlag("format", "fa", "output format[fa|bam|dot]")
	}
	cdi := app.DefineSubCommand("compress-distance-index", "build and compress a distance index for an insert-size window", compressDistanceIndex)
	{
		cdi.DefineIntFlag("d", 250, "minimum insert size")
		cdi.DefineIntFlag("D", 450, "maximum insert size")
		cdi.DefineIntFlag("k", 1, "also chain and write the k-hop index when k > 1")
		cdi.DefineBoolFlag("buffered", false, "stage the working matrix in a temp file under --tmpdir")
		cdi.DefineBoolFlag("verify", false, "check compression validity on a node sample")
		cdi.DefineFloat64Flag("sample", 0.1, "node fraction checked by --verify")
	}
	mdi := app.DefineSubCommand("merge-distance-indices", "merge two window-stamped distance indices", mergeDistanceIndices)
	{
		mdi.DefineStringFlag("w1", "250,450", "first insert-size window as min,max")
		mdi.DefineStringFlag("w2", "450,650", "second insert-size window as min,max")
		mdi.DefineStringFlag("o", "", "output file name, default embeds the union window")
	}
	app.DefineSubCommand("verify-graph", "check topological ranking and report graph statistics", verifyGraph)
	rc := app.DefineSubCommand("rand-crs", "generate a random Basic matrix and report kernel timings", randCRS)
	{
		rc.DefineIntFlag("n", 1024, "matrix order")
		rc.DefineIntFlag("nnz", 65536, "number of nonzeros")
		rc.DefineIntFlag("seed", 1, "random seed")
	}
}

func loadGraph(opt utils.ArgsOpt) *seqgraph.Graph {
	g, err := seqgraph.Load(opt.GraphFn)
	if err != nil {
		log.Fatalf("[loadGraph] load graph file: %s failed, err: %v\n", opt.GraphFn, err)
	}
	if !g.VerifyRanks() {
		log.Fatalf("[loadGraph] graph file: %s is not topologically ranked\n", opt.GraphFn)
	}
	return g
}

func intFlag(c cli.Command, name string) int {
	v, ok := c.Flag(name).Get().(int)
	if !ok {
		log.Fatalf("[intFlag] argument: '%s' set error\n", name)
	}
	return v
}

func indexPaths(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	runtime.GOMAXPROCS(opt.NumCPU)
	g := loadGraph(opt)
	seedLen := uint64(intFlag(c, "l"))
	step := uint64(intFlag(c, "e"))
	n := uint64(intFlag(c, "n"))
	ctx := uint64(intFlag(c, "ctx"))
	seed := int64(intFlag(c, "seed"))
	dir := pathseq.Forward
	if c.Flag("reversed").Get().(bool) {
		dir = pathseq.Reversed
	}
	patched := !c.Flag("no-patched").Get().(bool)

	f := seedfinder.New(g, opt.Prefix, dir, ctx, seed, opt.NumCPU)
	if err := f.PickPaths(n, patched); err != nil {
		log.Fatalf("[indexPaths] path generation failed, err: %v\n", err)
	}
	log.Printf("[indexPaths] generated %d paths\n", f.PathSet().Size())
	if err := f.IndexPaths(); err != nil {
		log.Fatalf("[indexPaths] index serialization failed, err: %v\n", err)
	}
	loci := f.AddAllLoci(seedLen, step)
	if err := seedfinder.SaveStarts(opt.Prefix, seedLen, step, loci); err != nil {
		log.Fatalf("[indexPaths] write starting loci failed, err: %v\n", err)
	}
	log.Printf("[indexPaths] wrote %d uncovered starting loci\n", len(loci))
}

func inspectPaths(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	g := loadGraph(opt)
	idx, err := pathindex.Load(g, opt.Prefix)
	if err != nil {
		log.Fatalf("[inspectPaths] load index pair: %s failed, err: %v\n", opt.Prefix, err)
	}
	seedLen := uint64(intFlag(c, "l"))
	step := uint64(intFlag(c, "e"))
	if loci, err := seedfinder.LoadStarts(opt.Prefix, seedLen, step); err == nil {
		log.Printf("[inspectPaths] %d paths, %d starting loci\n", idx.Length(), len(loci))
	} else {
		log.Printf("[inspectPaths] %d paths, no starting loci for l=%d e=%d\n", idx.Length(), seedLen, step)
	}
	out := c.Flag("o").String()
	switch format := c.Flag("format").String(); format {
	case "fa":
		fp, err := os.Create(out + ".fa")
		if err != nil {
			log.Fatalf("[inspectPaths] create file: %s failed, err: %v\n", out+".fa", err)
		}
		defer fp.Close()
		if err = dump.FASTA(idx.GetPathsSet(), fp); err != nil {
			log.Fatalf("[inspectPaths] FASTA dump failed, err: %v\n", err)
		}
	case "bam":
		if err := dump.BAM(idx.GetPathsSet(), out+".bam", opt.NumCPU); err != nil {
			log.Fatalf("[inspectPaths] BAM dump failed, err: %v\n", err)
		}
	case "dot":
		if err := dump.Graphviz(g, out+".dot"); err != nil {
			log.Fatalf("[inspectPaths] dot dump failed, err: %v\n", err)
		}
	default:
		log.Fatalf("[inspectPaths] unknown format: %s\n", format)
	}
}

func compressDistanceIndex(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	runtime.GOMAXPROCS(opt.NumCPU)
	g := loadGraph(opt)
	minInsert := uint64(intFlag(c, "d"))
	maxInsert := uint64(intFlag(c, "D"))
	k := intFlag(c, "k")
	if k < 1 {
		log.Fatalf("[compressDistanceIndex] k: %d must be >= 1\n", k)
	}
	f := seedfinder.New(g, opt.Prefix, pathseq.Forward, 0, 1, opt.NumCPU)
	if c.Flag("buffered").Get().(bool) {
		f.UseBufferedMatrices(opt.TmpDir)
	}
	m, err := f.BuildDistanceIndex(minInsert, maxInsert)
	if err != nil {
		log.Fatalf("[compressDistanceIndex] build failed, err: %v\n", err)
	}
	if c.Flag("verify").Get().(bool) {
		p := c.Flag("sample").Get().(float64)
		if err = spgemm.VerifyCompression(m, g, p, 1); err != nil {
			log.Fatalf("[compressDistanceIndex] verification failed, err: %v\n", err)
		}
		log.Printf("[compressDistanceIndex] compression verified on a %.2f node sample\n", p)
	}
	if err = seedfinder.SaveDistanceIndex(m, opt.Prefix, minInsert, maxInsert); err != nil {
		log.Fatalf("[compressDistanceIndex] write failed, err: %v\n", err)
	}
	log.Printf("[compressDistanceIndex] wrote %s, nnz: %d\n",
		seedfinder.DistanceIndexFileName(opt.Prefix, minInsert, maxInsert), m.NNZ())
	if k > 1 {
		kh, err := seedfinder.KHopIndex(m, k, opt.NumCPU)
		if err != nil {
			log.Fatalf("[compressDistanceIndex] %d-hop chain failed, err: %v\n", k, err)
		}
		if err = seedfinder.SaveKHopIndex(kh, opt.Prefix, minInsert, maxInsert, k); err != nil {
			log.Fatalf("[compressDistanceIndex] write failed, err: %v\n", err)
		}
		log.Printf("[compressDistanceIndex] wrote %s, nnz: %d\n",
			seedfinder.KHopFileName(opt.Prefix, minInsert, maxInsert, k), kh.NNZ())
	}
}

func parseWindow(s string) (uint64, uint64) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		log.Fatalf("[parseWindow] window: %s must be min,max\n", s)
	}
	lo, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		log.Fatalf("[parseWindow] window: %s parse error: %v\n", s, err)
	}
	hi, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		log.Fatalf("[parseWindow] window: %s parse error: %v\n", s, err)
	}
	return lo, hi
}

func mergeDistanceIndices(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	runtime.GOMAXPROCS(opt.NumCPU)
	min1, max1 := parseWindow(c.Flag("w1").String())
	min2, max2 := parseWindow(c.Flag("w2").String())
	fn, err := seedfinder.MergeDistanceIndices(opt.Prefix, min1, max1, min2, max2, opt.NumCPU)
	if err != nil {
		log.Fatalf("[mergeDistanceIndices] merge failed, err: %v\n", err)
	}
	if out := c.Flag("o").String(); out != "" {
		if err = os.Rename(fn, out); err != nil {
			log.Fatalf("[mergeDistanceIndices] rename to %s failed, err: %v\n", out, err)
		}
		fn = out
	}
	log.Printf("[mergeDistanceIndices] wrote %s\n", fn)
}

func verifyGraph(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	g, err := seqgraph.Load(opt.GraphFn)
	if err != nil {
		log.Fatalf("[verifyGraph] load graph file: %s failed, err: %v\n", opt.GraphFn, err)
	}
	if !g.VerifyRanks() {
		log.Fatalf("[verifyGraph] graph file: %s is not topologically ranked\n", opt.GraphFn)
	}
	fmt.Printf("nodes: %d\nloci: %d\nchecksum: %016x\n", g.NodeCount(), g.TotalNofLoci(), g.Checksum())
}

func randCRS(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	runtime.GOMAXPROCS(opt.NumCPU)
	n := uint64(intFlag(c, "n"))
	nnz := uint64(intFlag(c, "nnz"))
	seed := int64(intFlag(c, "seed"))
	start := time.Now()
	a := spgemm.RandomBasic(n, nnz, 0, n-1, seed, opt.NumCPU)
	b := spgemm.RandomBasic(n, nnz, 0, n-1, seed+1, opt.NumCPU)
	log.Printf("[randCRS] generated two %dx%d matrices, nnz: %d, in %v\n", n, n, a.NNZ(), time.Since(start))
	ra := crs.NewDynamic(crs.Range, 0)
	rb := crs.NewDynamic(crs.Range, 0)
	if err := ra.Assign(a); err != nil {
		log.Fatalf("[randCRS] conversion failed, err: %v\n", err)
	}
	if err := rb.Assign(b); err != nil {
		log.Fatalf("[randCRS] conversion failed, err: %v\n", err)
	}
	start = time.Now()
	prod, err := spgemm.RangeSpGEMM(ra, rb, opt.NumCPU)
	if err != nil {
		log.Fatalf("[randCRS] SpGEMM failed, err: %v\n", err)
	}
	log.Printf("[randCRS] product nnz: %d, in %v\n", prod.NNZ(), time.Since(start))
	start = time.Now()
	merged, err := spgemm.MergeRange(ra, rb, opt.NumCPU)
	if err != nil {
		log.Fatalf("[randCRS] merge failed, err: %v\n", err)
	}
	log.Printf("[randCRS] merged nnz: %d, in %v\n", merged.NNZ(), time.Since(start))
}

func main() {
	app.Start()
}
