// Package templix implements template-matching indexation for scanning
// electron diffraction data.
//
// Templix builds a library of kinematically simulated diffraction
// templates for a set of candidate crystal structures and orientation
// grids, scores experimental patterns against every template by
// normalized cross-correlation, and assembles per-pixel best matches
// into an orientation/phase map.
//
// # Quick Start
//
// Build a library and index one pattern:
//
//	ctx := context.Background()
//
//	builder, _ := simulate.NewBuilder(simulate.DefaultConfig(cal))
//	grid, _ := orientation.NewGrid(orientation.DefaultGridConfig())
//	_ = builder.Add(structure, grid)
//	lib, _ := builder.Build(ctx)
//
//	ix, _ := templix.NewIndexer(lib)
//	matches, _ := ix.Match(ctx, pat, 3)
//	for _, m := range matches {
//	    fmt.Println(m.Phase, m.OrientationIndex, m.Score)
//	}
//
// Assemble a full orientation map in parallel:
//
//	asm, _ := mapper.NewAssembler(ix, mapper.WithTopK(1))
//	omap, _ := asm.Map(ctx, dataset)
//	fmt.Println(omap.Summary())
//
// # Key Features
//
//   - Kinematic diffraction simulation over configurable orientation grids
//   - Normalized cross-correlation scoring with deterministic tie-breaks
//   - Detector masks and affine/center geometry corrections
//   - Parallel per-pixel map assembly with per-position failure isolation
//   - Library snapshots on local disk, in memory, or object storage (S3, MinIO)
package templix
