package pdf

// maxTreeDepth bounds page tree recursion on malformed or cyclic trees.
const maxTreeDepth = 64

// DefaultMediaBox is US Letter, used when no /MediaBox is inherited.
var DefaultMediaBox = [4]float64{0, 0, 612, 792}

func (d *Document) pageRoot() (Object, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return Object{}, err
	}
	pagesRef, ok := catalog.Value.Key("Pages")
	if !ok {
		return Object{}, notRecognized("/Pages not found in catalog")
	}
	pages, err := d.Deref(pagesRef)
	if err != nil {
		return Object{}, err
	}
	if pages.Kind != Dict || !pages.Has("Kids") {
		return Object{}, notRecognized("/Kids not found in page tree root")
	}
	return pages, nil
}

// PageCount returns the number of pages, preferring the root /Count.
func (d *Document) PageCount() (int, error) {
	root, err := d.pageRoot()
	if err != nil {
		return 0, err
	}
	if c, ok := root.Key("Count"); ok {
		if c, err := d.Deref(c); err == nil {
			if n, ok := c.Int(); ok && n > 0 {
				return int(n), nil
			}
		}
	}

	count := 0
	err = d.walkPages(root, 0, func(Indirect) bool {
		count++
		return false
	})
	return count, err
}

// Page returns page index, counting from 1. Index 0 selects the last page.
func (d *Document) Page(index int) (Indirect, error) {
	if index < 0 {
		return Indirect{}, notRecognized("invalid page number %d", index)
	}
	total, err := d.PageCount()
	if err != nil {
		return Indirect{}, err
	}
	if index == 0 {
		index = total
	}
	if index > total {
		return Indirect{}, notRecognized("page %d not found, document has %d pages", index, total)
	}

	root, err := d.pageRoot()
	if err != nil {
		return Indirect{}, err
	}

	var page Indirect
	var found bool
	remaining := index
	err = d.walkCounted(root, &remaining, 0, func(p Indirect) {
		page, found = p, true
	})
	if err != nil {
		return Indirect{}, err
	}
	if !found {
		return Indirect{}, notRecognized("page %d not found in page tree", index)
	}
	return page, nil
}

// walkCounted descends into the subtree that holds page *remaining, using
// /Count to skip whole subtrees.
func (d *Document) walkCounted(node Object, remaining *int, depth int, found func(Indirect)) error {
	if depth > maxTreeDepth {
		return notRecognized("page tree too deep")
	}
	kids, err := d.kids(node)
	if err != nil {
		return err
	}
	for _, kid := range kids.Items {
		if kid.Kind != Reference {
			continue
		}
		obj, err := d.Object(kid.Ref.Number)
		if err != nil {
			return err
		}
		if isPageTreeNode(obj.Value) {
			if c, ok := obj.Value.Key("Count"); ok {
				if c, err := d.Deref(c); err == nil {
					if n, ok := c.Int(); ok && int(n) < *remaining {
						*remaining -= int(n)
						continue
					}
				}
			}
			if err := d.walkCounted(obj.Value, remaining, depth+1, found); err != nil {
				return err
			}
			if *remaining == 0 {
				return nil
			}
			continue
		}
		*remaining--
		if *remaining == 0 {
			found(obj)
			return nil
		}
	}
	return nil
}

// walkPages calls fn for every leaf page in order until fn returns true.
func (d *Document) walkPages(node Object, depth int, fn func(Indirect) bool) error {
	if depth > maxTreeDepth {
		return notRecognized("page tree too deep")
	}
	kids, err := d.kids(node)
	if err != nil {
		return err
	}
	for _, kid := range kids.Items {
		if kid.Kind != Reference {
			continue
		}
		obj, err := d.Object(kid.Ref.Number)
		if err != nil {
			return err
		}
		if isPageTreeNode(obj.Value) {
			if err := d.walkPages(obj.Value, depth+1, fn); err != nil {
				return err
			}
			continue
		}
		if fn(obj) {
			return nil
		}
	}
	return nil
}

func (d *Document) kids(node Object) (Object, error) {
	kids, ok := node.Key("Kids")
	if !ok {
		return Object{}, notRecognized("/Kids not found in page tree node")
	}
	kids, err := d.Deref(kids)
	if err != nil {
		return Object{}, err
	}
	if kids.Kind != Array {
		return Object{}, notRecognized("/Kids is not an array")
	}
	return kids, nil
}

func isPageTreeNode(o Object) bool {
	typ, _ := o.Key("Type")
	if typ.IsName("Pages") {
		return true
	}
	return !typ.IsName("Page") && o.Has("Kids")
}

// MediaBox returns the page /MediaBox, inherited through /Parent.
func (d *Document) MediaBox(page Indirect) [4]float64 {
	node := page.Value
	for depth := 0; depth < maxTreeDepth && node.Kind == Dict; depth++ {
		if mb, ok := node.Key("MediaBox"); ok {
			if box, ok := d.rect(mb); ok {
				return box
			}
		}
		parent, ok := node.Key("Parent")
		if !ok {
			break
		}
		next, err := d.Deref(parent)
		if err != nil {
			break
		}
		node = next
	}
	return DefaultMediaBox
}

func (d *Document) rect(o Object) ([4]float64, bool) {
	o, err := d.Deref(o)
	if err != nil || o.Kind != Array || len(o.Items) != 4 {
		return [4]float64{}, false
	}
	var box [4]float64
	for i, item := range o.Items {
		item, err := d.Deref(item)
		if err != nil {
			return [4]float64{}, false
		}
		f, ok := item.Float()
		if !ok {
			return [4]float64{}, false
		}
		box[i] = f
	}
	if box[0] > box[2] {
		box[0], box[2] = box[2], box[0]
	}
	if box[1] > box[3] {
		box[1], box[3] = box[3], box[1]
	}
	return box, true
}
