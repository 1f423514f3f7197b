package tree

import "sort"

// Build assembles a rooted hierarchy from flattened entries.
//
// Entries are sorted by path depth ascending so parents materialize before
// any of their children attach, then each entry is appended into its
// parent's children slot via a path-indexed map. This tolerates arbitrary
// provider ordering and stays O(n log n) with no deep recursion during
// assembly. Providers that omit intermediate directory entries get them
// synthesized. Duplicate paths collapse to the first occurrence.
func Build(entries []*Node) []*Node {
	sorted := make([]*Node, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Depth(sorted[i].Path) < Depth(sorted[j].Path)
	})

	var roots []*Node
	slots := make(map[string]*Node, len(sorted)) // directory path -> node
	seen := make(map[string]bool, len(sorted))

	attach := func(n *Node) {
		parent := ParentPath(n.Path)
		if parent == "" {
			roots = append(roots, n)
			return
		}
		dir, ok := slots[parent]
		if !ok {
			dir = synthesizeDir(parent, slots, &roots)
		}
		dir.Children = append(dir.Children, n)
	}

	for _, entry := range sorted {
		if entry.Path == "" || seen[entry.Path] {
			continue
		}
		seen[entry.Path] = true

		if entry.Name == "" {
			entry.Name = BaseName(entry.Path)
		}
		if entry.Severity == "" {
			entry.Severity = SeverityNone
		}
		if entry.Kind == KindDirectory {
			slots[entry.Path] = entry
		}
		attach(entry)
	}

	return roots
}

// synthesizeDir creates directory nodes for a path the provider never
// listed, walking up until an existing slot (or the root) is reached.
func synthesizeDir(path string, slots map[string]*Node, roots *[]*Node) *Node {
	dir := &Node{
		Path:     path,
		Name:     BaseName(path),
		Kind:     KindDirectory,
		Severity: SeverityNone,
	}
	slots[path] = dir

	parent := ParentPath(path)
	if parent == "" {
		*roots = append(*roots, dir)
		return dir
	}

	parentDir, ok := slots[parent]
	if !ok {
		parentDir = synthesizeDir(parent, slots, roots)
	}
	parentDir.Children = append(parentDir.Children, dir)
	return dir
}
