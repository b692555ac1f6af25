// Package program holds the classes of one transformation run and the
// facts computed across all of them, such as invocation counts.
package program

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/kiln/classfile"
)

var log = commonlog.GetLogger("kiln.program")

// Class is one class of the program. Library classes are only consulted
// for resolution and are never transformed.
type Class struct {
	File    *classfile.ClassFile
	Path    string
	Library bool
}

func (c *Class) Name() string { return c.File.ClassName() }

// Pool indexes classes by internal name.
type Pool struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

func NewPool() *Pool {
	return &Pool{classes: make(map[string]*Class)}
}

// Add registers a class, replacing any class of the same name.
func (p *Pool) Add(cf *classfile.ClassFile, path string, library bool) *Class {
	c := &Class{File: cf, Path: path, Library: library}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classes[c.Name()] = c
	return c
}

func (p *Pool) LoadFile(path string, library bool) (*Class, error) {
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return p.Add(cf, path, library), nil
}

// LoadDir adds every .class file below dir. Files that fail to parse are
// logged and skipped; the run goes on with the other classes.
func (p *Pool) LoadDir(dir string, library bool) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".class" {
			return nil
		}
		if _, err := p.LoadFile(path, library); err != nil {
			var formatErr *classfile.FormatError
			if errors.As(err, &formatErr) {
				log.Warningf("skipping %s: %s", path, err)
				return nil
			}
			return err
		}
		return nil
	})
}

func (p *Pool) Class(name string) *Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.classes[name]
}

// Classes returns all classes ordered by name.
func (p *Pool) Classes() []*Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.classes))
	for name := range p.classes {
		names = append(names, name)
	}
	slices.Sort(names)
	classes := make([]*Class, len(names))
	for i, name := range names {
		classes[i] = p.classes[name]
	}
	return classes
}

// ProgramClasses returns the classes that are not library classes.
func (p *Pool) ProgramClasses() []*Class {
	var classes []*Class
	for _, c := range p.Classes() {
		if !c.Library {
			classes = append(classes, c)
		}
	}
	return classes
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.classes)
}
