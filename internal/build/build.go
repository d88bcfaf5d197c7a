package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ribosome.dev/internal/compiler"
	"ribosome.dev/internal/nbt"
	"ribosome.dev/internal/persistence/indexdb"
	persistlog "ribosome.dev/internal/persistence/log"
	"ribosome.dev/internal/structure"
)

const SourceExt = ".nbt"

// Index is the subset of the build index the builder needs.
type Index interface {
	Lookup(ctx context.Context, source string) (indexdb.BuildRow, bool, error)
	RecordBuild(r indexdb.BuildRow)
}

// Reporter receives one entry per processed file.
type Reporter interface {
	WriteBuild(e persistlog.BuildEntry) error
}

// FileError is a structure file that could not be decoded or compiled.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("[%s] %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

type Builder struct {
	Config compiler.Config
	// Extension of the written files, with the leading dot.
	Extension       string
	TrailingNewline bool
	// Force recompiles files the index reports as up to date.
	Force bool

	Index  Index
	Report Reporter
	Logger *log.Logger
}

type Result struct {
	Source       string
	Output       string
	SourceDigest string
	DataVersion  int32
	Lines        int
	Skipped      int
	Cached       bool
}

// Run compiles path, or every .nbt file directly inside it when it is a
// directory. It stops at the first error.
func (b *Builder) Run(ctx context.Context, path string) ([]Result, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, err
	}
	if !st.IsDir() {
		r, err := b.BuildFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return []Result{r}, nil
	}

	files, err := listSources(path)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r, err := b.BuildFile(ctx, f)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func listSources(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if !e.Type().IsRegular() {
			continue
		}
		if filepath.Ext(e.Name()) == SourceExt {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// BuildFile compiles one structure file next to itself.
func (b *Builder) BuildFile(ctx context.Context, path string) (Result, error) {
	if filepath.Ext(path) != SourceExt {
		return Result{}, fmt.Errorf("%s is not %s file", path, SourceExt)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	sum := sha256.Sum256(raw)
	res := Result{
		Source:       path,
		Output:       b.outputPath(path),
		SourceDigest: hex.EncodeToString(sum[:]),
	}
	cfgDigest := b.configDigest()

	if b.Index != nil && !b.Force {
		prev, ok, err := b.Index.Lookup(ctx, abs)
		if err != nil {
			b.logf("index lookup %s: %v", path, err)
		} else if ok && prev.SourceSHA256 == res.SourceDigest && prev.ConfigDigest == cfgDigest && fileExists(prev.Output) {
			res.Cached = true
			res.DataVersion = prev.DataVersion
			res.Lines = prev.Lines
			res.Skipped = prev.Skipped
			b.logf("%s is up to date", path)
			b.report(res, nil)
			return res, nil
		}
	}

	doc, err := decode(raw)
	if err != nil {
		err = &FileError{Path: path, Err: err}
		b.report(res, err)
		return Result{}, err
	}
	lines, err := compiler.Lines(doc, b.Config)
	if err != nil {
		err = &FileError{Path: path, Err: err}
		b.report(res, err)
		return Result{}, err
	}
	res.DataVersion = doc.DataVersion
	res.Lines = len(lines)
	res.Skipped = len(doc.Blocks) - (len(lines) - 1)

	data := strings.Join(lines, "\n")
	if b.TrailingNewline {
		data += "\n"
	}
	if err := os.WriteFile(res.Output, []byte(data), 0o644); err != nil {
		b.report(res, err)
		return Result{}, err
	}

	outAbs, err := filepath.Abs(res.Output)
	if err != nil {
		outAbs = res.Output
	}
	if b.Index != nil {
		b.Index.RecordBuild(indexdb.BuildRow{
			Source:       abs,
			SourceSHA256: res.SourceDigest,
			ConfigDigest: cfgDigest,
			Output:       outAbs,
			DataVersion:  res.DataVersion,
			Lines:        res.Lines,
			Skipped:      res.Skipped,
		})
	}
	b.report(res, nil)
	b.logf("compiled %s to %s", path, res.Output)
	return res, nil
}

func decode(raw []byte) (*structure.Document, error) {
	r, err := nbt.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	_, root, err := nbt.Decode(r)
	if err != nil {
		return nil, err
	}
	return structure.FromNBT(root)
}

func (b *Builder) outputPath(src string) string {
	ext := b.Extension
	if ext == "" {
		ext = ".mcfunction"
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}

// configDigest changes whenever an option that affects the output changes.
func (b *Builder) configDigest() string {
	v := struct {
		Config          compiler.Config `json:"config"`
		Extension       string          `json:"extension"`
		TrailingNewline bool            `json:"trailing_newline"`
	}{b.Config, b.Extension, b.TrailingNewline}
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (b *Builder) report(r Result, err error) {
	if b.Report == nil {
		return
	}
	e := persistlog.BuildEntry{
		Time:         time.Now().UTC().Format(time.RFC3339Nano),
		Source:       r.Source,
		SourceSHA256: r.SourceDigest,
		DataVersion:  r.DataVersion,
		Lines:        r.Lines,
		Skipped:      r.Skipped,
		Cached:       r.Cached,
	}
	if err != nil {
		e.Error = err.Error()
	} else {
		e.Output = r.Output
	}
	if werr := b.Report.WriteBuild(e); werr != nil {
		b.logf("report: %v", werr)
	}
}

func (b *Builder) logf(format string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, args...)
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
