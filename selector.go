package vfskit

import (
	"context"
	"strings"

	"github.com/gobwas/glob"
)

// ============================================================================
// FileSelector Interface
// ============================================================================

// FileSelectInfo describes the file a selector is asked about.
type FileSelectInfo struct {
	// BaseFolder is the folder the search started from.
	BaseFolder FileObject
	// File is the candidate.
	File FileObject
	// Depth is the distance from BaseFolder, which has depth 0.
	Depth int
}

// FileSelector decides which files FindFiles returns and which folders it
// descends into.
//
//	selector := vfskit.And(
//	    vfskit.Glob("**/*.txt"),
//	    vfskit.FilesOnly(),
//	)
//	files, err := vfskit.FindFiles(ctx, root, selector, true)
type FileSelector interface {
	// Match returns true if the file should be included in results.
	Match(ctx context.Context, info *FileSelectInfo) bool

	// TraverseDescendants returns true if the children of a folder should
	// be visited. Only called for files whose type has children.
	TraverseDescendants(ctx context.Context, info *FileSelectInfo) bool
}

// ============================================================================
// FindFiles
// ============================================================================

// FindFiles returns the files under base, base included, that selector
// matches. With depthFirst a folder follows its descendants in the result;
// otherwise it precedes them. Every returned handle other than base must be
// closed.
func FindFiles(ctx context.Context, base FileObject, selector FileSelector, depthFirst bool) ([]FileObject, error) {
	if selector == nil {
		selector = All()
	}
	exists, err := base.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	info := &FileSelectInfo{BaseFolder: base, File: base}
	var selected []FileObject
	if _, err := traverse(ctx, info, selector, depthFirst, &selected); err != nil {
		for _, f := range selected {
			if f != base {
				f.Close()
			}
		}
		return nil, err
	}
	return selected, nil
}

// traverse visits info.File and its descendants. It reports whether the file
// itself was selected.
func traverse(ctx context.Context, info *FileSelectInfo, selector FileSelector, depthFirst bool, selected *[]FileObject) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	file := info.File
	index := len(*selected)

	t, err := file.Type(ctx)
	if err != nil {
		return false, err
	}
	if t.HasChildren() && selector.TraverseDescendants(ctx, info) {
		children, err := file.Children(ctx)
		if err != nil {
			return false, err
		}
		depth := info.Depth
		info.Depth++
		for i, child := range children {
			info.File = child
			kept, err := traverse(ctx, info, selector, depthFirst, selected)
			if !kept {
				child.Close()
			}
			if err != nil {
				for _, rest := range children[i+1:] {
					rest.Close()
				}
				return false, err
			}
		}
		info.File = file
		info.Depth = depth
	}

	if !selector.Match(ctx, info) {
		return false, nil
	}
	if depthFirst {
		*selected = append(*selected, file)
	} else {
		*selected = append((*selected)[:index], append([]FileObject{file}, (*selected)[index:]...)...)
	}
	return true, nil
}

// ============================================================================
// Built-in Selectors
// ============================================================================

// AllSelector matches all files and traverses all directories.
type AllSelector struct{}

func (s AllSelector) Match(context.Context, *FileSelectInfo) bool               { return true }
func (s AllSelector) TraverseDescendants(context.Context, *FileSelectInfo) bool { return true }

// All returns a selector that matches all files, the base folder included.
func All() FileSelector {
	return AllSelector{}
}

// ExcludeSelf matches everything below the base folder.
func ExcludeSelf() FileSelector {
	return Depth(1, -1)
}

// SelectSelf matches the base folder only.
func SelectSelf() FileSelector {
	return Depth(0, 0)
}

// FilesOnly matches files with content.
func FilesOnly() FileSelector {
	return FuncSelector(func(ctx context.Context, info *FileSelectInfo) bool {
		t, err := info.File.Type(ctx)
		return err == nil && t.HasContent()
	})
}

// FoldersOnly matches files with children.
func FoldersOnly() FileSelector {
	return FuncSelector(func(ctx context.Context, info *FileSelectInfo) bool {
		t, err := info.File.Type(ctx)
		return err == nil && t.HasChildren()
	})
}

// ============================================================================
// Glob - Pattern matching
// ============================================================================

type globSelector struct {
	pattern  glob.Glob
	fullPath bool
}

// Glob creates a selector using glob patterns. A pattern without a separator
// is matched against base names; one with a separator against the path
// relative to the base folder, where ** crosses separators. An invalid
// pattern matches nothing.
//
// Examples:
//
//	Glob("*.txt")           // All .txt files
//	Glob("image_????.jpg")  // image_0001.jpg, etc.
//	Glob("src/**/*.go")     // Go files anywhere under src
func Glob(pattern string) FileSelector {
	g, err := glob.Compile(pattern, separatorChar)
	if err != nil {
		return FuncSelector(func(context.Context, *FileSelectInfo) bool { return false })
	}
	return &globSelector{pattern: g, fullPath: strings.Contains(pattern, separator)}
}

func (s *globSelector) Match(_ context.Context, info *FileSelectInfo) bool {
	if info.Depth == 0 {
		return false
	}
	if !s.fullPath {
		return s.pattern.Match(info.File.Name().BaseName())
	}
	rel := info.BaseFolder.Name().RelativeName(info.File.Name())
	return s.pattern.Match(strings.TrimSuffix(rel, separator))
}

func (s *globSelector) TraverseDescendants(context.Context, *FileSelectInfo) bool {
	return true
}

// ============================================================================
// Depth - Depth limiting
// ============================================================================

type depthSelector struct {
	minDepth int
	maxDepth int
}

// Depth matches files whose depth below the base folder lies in
// [minDepth, maxDepth]. A negative maxDepth means no limit.
//
// Example:
//
//	Depth(1, 2)  // children and grandchildren
func Depth(minDepth, maxDepth int) FileSelector {
	return &depthSelector{minDepth: minDepth, maxDepth: maxDepth}
}

func (s *depthSelector) Match(_ context.Context, info *FileSelectInfo) bool {
	return info.Depth >= s.minDepth && (s.maxDepth < 0 || info.Depth <= s.maxDepth)
}

func (s *depthSelector) TraverseDescendants(_ context.Context, info *FileSelectInfo) bool {
	return s.maxDepth < 0 || info.Depth < s.maxDepth
}

// ============================================================================
// Composable Selectors (And, Or, Not)
// ============================================================================

type andSelector struct {
	selectors []FileSelector
}

// And matches only if ALL selectors match.
func And(selectors ...FileSelector) FileSelector {
	return &andSelector{selectors: selectors}
}

func (s *andSelector) Match(ctx context.Context, info *FileSelectInfo) bool {
	for _, sel := range s.selectors {
		if !sel.Match(ctx, info) {
			return false
		}
	}
	return true
}

func (s *andSelector) TraverseDescendants(ctx context.Context, info *FileSelectInfo) bool {
	for _, sel := range s.selectors {
		if !sel.TraverseDescendants(ctx, info) {
			return false
		}
	}
	return true
}

type orSelector struct {
	selectors []FileSelector
}

// Or matches if ANY selector matches.
func Or(selectors ...FileSelector) FileSelector {
	return &orSelector{selectors: selectors}
}

func (s *orSelector) Match(ctx context.Context, info *FileSelectInfo) bool {
	for _, sel := range s.selectors {
		if sel.Match(ctx, info) {
			return true
		}
	}
	return false
}

func (s *orSelector) TraverseDescendants(ctx context.Context, info *FileSelectInfo) bool {
	for _, sel := range s.selectors {
		if sel.TraverseDescendants(ctx, info) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector FileSelector
}

// Not inverts a selector's match result.
func Not(selector FileSelector) FileSelector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(ctx context.Context, info *FileSelectInfo) bool {
	return !s.selector.Match(ctx, info)
}

func (s *notSelector) TraverseDescendants(context.Context, *FileSelectInfo) bool {
	return true
}

// ============================================================================
// FuncSelector - Custom logic
// ============================================================================

type funcSelector struct {
	matchFn    func(context.Context, *FileSelectInfo) bool
	traverseFn func(context.Context, *FileSelectInfo) bool
}

// FuncSelector creates a selector from a custom function. It traverses every
// folder.
func FuncSelector(fn func(context.Context, *FileSelectInfo) bool) FileSelector {
	return &funcSelector{
		matchFn:    fn,
		traverseFn: func(context.Context, *FileSelectInfo) bool { return true },
	}
}

// FuncSelectorFull creates a selector with custom match and traverse functions.
func FuncSelectorFull(matchFn, traverseFn func(context.Context, *FileSelectInfo) bool) FileSelector {
	return &funcSelector{
		matchFn:    matchFn,
		traverseFn: traverseFn,
	}
}

func (s *funcSelector) Match(ctx context.Context, info *FileSelectInfo) bool {
	return s.matchFn(ctx, info)
}

func (s *funcSelector) TraverseDescendants(ctx context.Context, info *FileSelectInfo) bool {
	return s.traverseFn(ctx, info)
}
