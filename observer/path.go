package observer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var bailRE = regexp.MustCompile(`[^\w.$]`)

type parsedPath struct {
	path     string
	segments []string
}

// parsePath compiles a dot-delimited path into a Getter rooted at the
// watcher's instance. Segments are cached per System.
func (s *System) parsePath(path string) (Getter, error) {
	if bailRE.MatchString(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	key := xxhash.Sum64String(path)
	parsed, ok := s.paths[key]
	if !ok || parsed.path != path {
		parsed = &parsedPath{path: path, segments: strings.Split(path, ".")}
		s.paths[key] = parsed
	}

	segments := parsed.segments
	return func(vm *Instance) (any, error) {
		var obj any
		if vm != nil {
			obj = vm
		}
		for _, seg := range segments {
			if obj == nil {
				return nil, nil
			}
			obj = lookup(obj, seg)
		}
		return obj, nil
	}, nil
}

func lookup(obj any, key string) any {
	switch o := obj.(type) {
	case *Instance:
		if o == nil {
			return nil
		}
		return o.Get(key)
	case *Object:
		if o == nil {
			return nil
		}
		return o.Get(key)
	case *Array:
		if o == nil {
			return nil
		}
		i, err := strconv.Atoi(key)
		if err != nil {
			return nil
		}
		return o.At(i)
	case map[string]any:
		return o[key]
	}
	return nil
}
