package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mapstudio/ainb/pkg/codec"
)

// FileError is a failed conversion inside a tree.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

// Summary reports the outcome of a tree conversion.
type Summary struct {
	Converted int
	Skipped   int
	Failed    []FileError
}

// Err joins the per-file failures, or returns nil when every file converted.
func (s Summary) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failed))
	for i, f := range s.Failed {
		errs[i] = f
	}
	return fmt.Errorf("%d of %d files failed: %w", len(s.Failed), s.Converted+s.Skipped+len(s.Failed), errors.Join(errs...))
}

type job struct {
	dir     Direction
	in, out string
}

// Tree converts every matching file below root. Decoding picks .ainb files,
// encoding picks files with a document extension, and Auto picks both. With
// an empty outDir outputs are written next to their inputs, otherwise the
// directory structure is mirrored below outDir. Failed files are collected in
// the summary; the returned error is set only when the walk itself fails or
// ctx is cancelled.
func (c *Converter) Tree(ctx context.Context, dir Direction, root, outDir string) (Summary, error) {
	jobs, summary, err := c.plan(dir, root, outDir)
	if err != nil {
		return Summary{}, err
	}
	c.log.WithFields(logrus.Fields{"root": root, "files": len(jobs)}).Debug("planned tree conversion")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Jobs)

	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		j := j
		g.Go(func() error {
			if !c.opts.Overwrite {
				if _, err := os.Stat(j.out); err == nil {
					c.log.WithField("out", j.out).Info("output exists, skipping")
					mu.Lock()
					summary.Skipped++
					mu.Unlock()
					return nil
				}
			}

			err := c.File(gctx, j.dir, j.in, j.out)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Converted++
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				c.log.WithError(err).WithField("in", j.in).Warn("conversion failed")
				summary.Failed = append(summary.Failed, FileError{Path: j.in, Err: err})
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	sort.Slice(summary.Failed, func(i, k int) bool { return summary.Failed[i].Path < summary.Failed[k].Path })
	return summary, err
}

// plan lists the conversions below root. Files that cannot be converted
// without clobbering another file are already accounted for in the returned
// summary.
func (c *Converter) plan(dir Direction, root, outDir string) ([]job, Summary, error) {
	var jobs []job
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		fileDir, ok := Classify(dir, path)
		if !ok {
			return nil
		}
		out, err := c.OutputPath(fileDir, path)
		if err != nil {
			return nil
		}
		if outDir != "" {
			rel, err := filepath.Rel(root, out)
			if err != nil {
				return err
			}
			out = filepath.Join(outDir, rel)
		}
		jobs = append(jobs, job{dir: fileDir, in: path, out: out})
		return nil
	})
	if err != nil {
		return nil, Summary{}, fmt.Errorf("walk %s: %w", root, err)
	}

	// a pair like Npc.ainb and Npc.ainb.json would overwrite each other
	inputs := make(map[string]bool, len(jobs))
	writers := make(map[string][]string, len(jobs))
	for _, j := range jobs {
		inputs[j.in] = true
		writers[j.out] = append(writers[j.out], j.in)
	}
	var summary Summary
	planned := jobs[:0]
	for _, j := range jobs {
		switch {
		case inputs[j.out]:
			c.log.WithFields(logrus.Fields{"in": j.in, "out": j.out}).Debug("output is itself an input, skipping")
			summary.Skipped++
		case len(writers[j.out]) > 1:
			c.log.WithFields(logrus.Fields{"in": j.in, "out": j.out}).Warn("output written by several inputs")
			summary.Failed = append(summary.Failed, FileError{
				Path: j.in,
				Err:  fmt.Errorf("output %s is written by %d inputs: %s", j.out, len(writers[j.out]), strings.Join(writers[j.out], ", ")),
			})
		default:
			planned = append(planned, j)
		}
	}
	return planned, summary, nil
}

// Classify picks the direction for path by extension: .ainb files decode and
// document files encode. dir restricts the result.
func Classify(dir Direction, path string) (Direction, bool) {
	isBinary := strings.EqualFold(filepath.Ext(path), BinaryExtension)
	_, isText := codec.FormatFromPath(path)
	switch {
	case isBinary && (dir == Decode || dir == Auto):
		return Decode, true
	case isText && (dir == Encode || dir == Auto):
		return Encode, true
	default:
		return "", false
	}
}
