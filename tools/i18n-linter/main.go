// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks that every message ID passed to i18n.T exists in the
// primary locale and that every other locale translates every primary ID.
//
// Run it from the repository root:
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
)

// report collects every problem found.
type report struct {
	// Unknown IDs are used in code but absent from the primary locale.
	Unknown []string
	// Orphaned IDs are in the primary locale but never used.
	Orphaned []string
	// Missing maps a secondary locale file to the IDs it lacks.
	Missing map[string][]string
}

func (r report) failed() bool {
	if len(r.Unknown) > 0 {
		return true
	}
	for _, ids := range r.Missing {
		if len(ids) > 0 {
			return true
		}
	}
	return false
}

func main() {
	r, err := lint(".", localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(1)
	}
	for _, id := range r.Unknown {
		fmt.Printf("unknown:  %s (used in code, missing from %s)\n", id, primaryLocale)
	}
	files := make([]string, 0, len(r.Missing))
	for f := range r.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, id := range r.Missing[f] {
			fmt.Printf("missing:  %s in %s\n", id, f)
		}
	}
	for _, id := range r.Orphaned {
		fmt.Printf("orphaned: %s\n", id)
	}
	if r.failed() {
		os.Exit(1)
	}
	fmt.Println("translation files are consistent")
}

func lint(root, locales string) (report, error) {
	r := report{Missing: map[string][]string{}}
	used, err := findUsedKeys(root)
	if err != nil {
		return r, err
	}
	primary, err := loadKeysFromLocale(filepath.Join(root, locales, primaryLocale))
	if err != nil {
		return r, fmt.Errorf("load primary locale: %w", err)
	}
	for id := range used {
		if _, ok := primary[id]; !ok {
			r.Unknown = append(r.Unknown, id)
		}
	}
	for id := range primary {
		if _, ok := used[id]; !ok {
			r.Orphaned = append(r.Orphaned, id)
		}
	}
	sort.Strings(r.Unknown)
	sort.Strings(r.Orphaned)

	others, err := filepath.Glob(filepath.Join(root, locales, "*.yaml"))
	if err != nil {
		return r, err
	}
	for _, f := range others {
		if filepath.Base(f) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return r, fmt.Errorf("load %s: %w", f, err)
		}
		var missing []string
		for id := range primary {
			if _, ok := keys[id]; !ok {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		r.Missing[filepath.Base(f)] = missing
	}
	return r, nil
}

// findUsedKeys returns the constant first arguments of every i18n.T call in
// the non-test Go files below root.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := map[string]struct{}{}
	fset := token.NewFileSet()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "tools" || name == "_examples" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			return err
		}
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || len(call.Args) == 0 || !isI18nT(call.Fun) {
				return true
			}
			if lit, ok := call.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
				if id, err := strconv.Unquote(lit.Value); err == nil {
					keys[id] = struct{}{}
				}
			}
			return true
		})
		return nil
	})
	return keys, err
}

func isI18nT(fun ast.Expr) bool {
	sel, ok := fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "T" {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "i18n"
}

// loadKeysFromLocale returns the message IDs of a go-i18n YAML file. Nested
// maps are flattened with dots.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	flattenYAML("", m, keys)
	return keys, nil
}

func flattenYAML(prefix string, m map[string]interface{}, keys map[string]struct{}) {
	for k, v := range m {
		id := k
		if prefix != "" {
			id = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenYAML(id, nested, keys)
			continue
		}
		keys[id] = struct{}{}
	}
}
