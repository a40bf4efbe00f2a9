package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a list of datasets from a YAML (.yaml, .yml) or JSON (.json)
// file, for example:
//
//	- owner: 7
//	  tree:
//	    name: projects
//	    children:
//	      - name: archive
//	        width: 20
func LoadFile(path string) ([]Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var datasets []Dataset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &datasets)
	case ".json":
		err = json.Unmarshal(data, &datasets)
	default:
		return nil, fmt.Errorf("unknown seed file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file: %w", err)
	}

	for i, ds := range datasets {
		if err := validateNode(ds.Tree); err != nil {
			return nil, fmt.Errorf("dataset %d: %w", i, err)
		}
	}
	return datasets, nil
}

func validateNode(n Node) error {
	stack := []Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Width < 0 {
			return fmt.Errorf("node %q: negative width %d", cur.Name, cur.Width)
		}
		stack = append(stack, cur.Children...)
	}
	return nil
}
