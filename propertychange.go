package streamset

// PropertyChangeSource is the per-item property-change contract consumed
// by filter_on_property and a transform operator's re-transform-on-change
// variant: selector takes an item and returns a stream that emits
// whenever some externally observed property of that item changes. The
// emitted value is typically the item itself (re-read) but is left
// generic so a selector can narrow to just the observed field.
type PropertyChangeSource[T any, P any] func(item T) Observable[P]
