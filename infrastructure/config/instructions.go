package config

import (
	"fmt"
	"sort"

	"desktop_automation/domain/entities"
)

// Instructions is the content of the instructions file
type Instructions struct {
	Objectives []entities.Objective `json:"objectives" yaml:"objectives"`
	// MockUnsupported lists objectives that exist only to be reported as unsupported
	MockUnsupported []entities.UnsupportedObjective `json:"mock_unsupported_objectives,omitempty" yaml:"mock_unsupported_objectives,omitempty"`
	// Sequences maps a sequence name to objective ids, overriding built-ins of the same name
	Sequences map[string][]string `json:"sequences,omitempty" yaml:"sequences,omitempty"`
}

// LoadInstructions reads an instructions file.
func LoadInstructions(path string) (*Instructions, error) {
	var ins Instructions
	if err := decodeFile(path, &ins); err != nil {
		return nil, err
	}
	for i, o := range ins.Objectives {
		if o.ID == "" {
			return nil, fmt.Errorf("config: objective %d in %s has no id", i, path)
		}
		if o.Name == "" {
			ins.Objectives[i].Name = o.ID
		}
	}
	return &ins, nil
}

// All returns every objective, mock unsupported ones appended as Supported=false.
func (ins *Instructions) All() []entities.Objective {
	all := make([]entities.Objective, 0, len(ins.Objectives)+len(ins.MockUnsupported))
	all = append(all, ins.Objectives...)
	for _, u := range ins.MockUnsupported {
		name := u.Name
		if name == "" {
			name = u.ID
		}
		all = append(all, entities.Objective{ID: u.ID, Name: name, App: u.App, Reason: u.Reason})
	}
	return all
}

// Objective returns the objective with the given id.
func (ins *Instructions) Objective(id string) (entities.Objective, error) {
	for _, o := range ins.All() {
		if o.ID == id {
			return o, nil
		}
	}
	return entities.Objective{}, fmt.Errorf("%w: %s", ErrObjectiveNotFound, id)
}

// Select returns the objectives named by ids, in the order given. Ids may
// repeat. Ids with no objective are returned in missing. With no ids every
// objective is selected.
func (ins *Instructions) Select(ids []string) (selected []entities.Objective, missing []string) {
	if len(ids) == 0 {
		return ins.All(), nil
	}
	for _, id := range ids {
		o, err := ins.Objective(id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		selected = append(selected, o)
	}
	return selected, missing
}

// SequenceNames lists the sequences defined in the file, sorted.
func (ins *Instructions) SequenceNames() []string {
	names := make([]string, 0, len(ins.Sequences))
	for name := range ins.Sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
