package vdom

// Walk visits node and its descendants depth-first in document order.
// Returning false from fn skips the node's children.
func Walk(node *VNode, fn func(*VNode) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range node.Children {
		Walk(child, fn)
	}
}

// CustomElements returns every custom element instance in the tree.
func CustomElements(node *VNode) []*VNode {
	var out []*VNode
	Walk(node, func(n *VNode) bool {
		if n.IsCustomElement() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// CustomTags returns the distinct custom element tags in the tree, in order
// of first appearance.
func CustomTags(node *VNode) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, n := range CustomElements(node) {
		if !seen[n.Tag] {
			seen[n.Tag] = true
			tags = append(tags, n.Tag)
		}
	}
	return tags
}
