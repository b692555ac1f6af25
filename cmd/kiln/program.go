package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/dhamidi/kiln/classfile"
	"github.com/dhamidi/kiln/config"
	"github.com/dhamidi/kiln/program"
)

// loadProgram reads the program classes below input and the library
// classes below each of libs.
func loadProgram(input string, libs []string) (*program.Pool, error) {
	pool := program.NewPool()
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", input, err)
	}
	if info.IsDir() {
		err = pool.LoadDir(input, false)
	} else {
		_, err = pool.LoadFile(input, false)
	}
	if err != nil {
		return nil, err
	}
	for _, lib := range libs {
		if err := pool.LoadDir(lib, true); err != nil {
			return nil, fmt.Errorf("load library %s: %w", lib, err)
		}
	}
	return pool, nil
}

func loadConfig(path, input string) (*config.Configuration, error) {
	if path != "" {
		return config.Load(path)
	}
	dir := input
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		dir = filepath.Dir(input)
	}
	return config.FindAndLoad(dir)
}

// writeProgram writes every program class below output, at the path it
// had below input, and returns the total sizes before and after.
func writeProgram(pool *program.Pool, input, output string) (before, after uint64, err error) {
	base := input
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		base = filepath.Dir(input)
	}
	for _, c := range pool.ProgramClasses() {
		rel, err := filepath.Rel(base, c.Path)
		if err != nil {
			return before, after, err
		}
		if info, err := os.Stat(c.Path); err == nil {
			before += uint64(info.Size())
		}
		data, err := classfile.Marshal(c.File)
		if err != nil {
			return before, after, fmt.Errorf("write %s: %w", c.Name(), err)
		}
		after += uint64(len(data))
		path := filepath.Join(output, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return before, after, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return before, after, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return before, after, nil
}

func printSizes(classes int, before, after uint64) {
	fmt.Printf("%s classes, %s -> %s\n",
		humanize.Comma(int64(classes)), humanize.Bytes(before), humanize.Bytes(after))
}
