package memo

import "container/list"

// keyOrder tracks keys in first-insertion order. Re-inserting a key that
// is already tracked keeps its position.
type keyOrder struct {
	order *list.List
	items map[string]*list.Element
}

func newKeyOrder() *keyOrder {
	return &keyOrder{
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (o *keyOrder) insert(key string) {
	if _, ok := o.items[key]; ok {
		return
	}
	o.items[key] = o.order.PushBack(key)
}

func (o *keyOrder) remove(key string) {
	if elem, ok := o.items[key]; ok {
		o.order.Remove(elem)
		delete(o.items, key)
	}
}

func (o *keyOrder) keys() []string {
	out := make([]string, 0, o.order.Len())
	for elem := o.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(string))
	}
	return out
}
