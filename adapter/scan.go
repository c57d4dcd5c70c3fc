package adapter

import (
	"github.com/ndlib/arbor/query"
	"github.com/ndlib/arbor/resource"
)

// compileQuery compiles expression, returning nil, nil if the query package
// does not know the language.
func compileQuery(expression, language string) (query.Matcher, error) {
	if !query.Supported(language) {
		return nil, nil
	}
	return query.Compile(language, expression)
}

// filter returns an iterator yielding the items of src which m matches.
func filter(src resource.Iterator, m query.Matcher) resource.Iterator {
	return resource.NewFuncIterator(func() (*resource.Data, error) {
		for src.Next() {
			d := src.Data()
			if m.Match(d.Path(), d.Properties()) {
				return d, nil
			}
		}
		return nil, src.Err()
	}, src.Close)
}

// chanIterator turns a channel fed by a producer goroutine into an
// iterator. Closing the iterator closes done, which tells the producer to
// stop early. The producer must close out when it is finished.
func chanIterator(out <-chan *resource.Data, done chan<- struct{}) resource.Iterator {
	return resource.NewFuncIterator(func() (*resource.Data, error) {
		d, ok := <-out
		if !ok {
			return nil, nil
		}
		return d, nil
	}, func() error {
		close(done)
		return nil
	})
}
