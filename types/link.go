package types

import (
	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/identifier"
)

// Link connects a source component to a target over a WIT interface.
type Link struct {
	SourceID     string   `json:"source_id"`
	Target       string   `json:"target"`
	Name         string   `json:"name"`
	WitNamespace string   `json:"wit_namespace"`
	WitPackage   string   `json:"wit_package"`
	Interfaces   []string `json:"interfaces"`
	SourceConfig []string `json:"source_config,omitempty"`
	TargetConfig []string `json:"target_config,omitempty"`
}

// Validate checks the link's identifiers and trims them in place.
func (l *Link) Validate() error {
	src, err := identifier.Component(l.SourceID)
	if err != nil {
		return errors.WrapInvalid(err, "Link", "Validate", "source id")
	}
	target, err := identifier.Component(l.Target)
	if err != nil {
		return errors.WrapInvalid(err, "Link", "Validate", "target")
	}
	name, err := identifier.Link(l.Name)
	if err != nil {
		return errors.WrapInvalid(err, "Link", "Validate", "link name")
	}
	l.SourceID, l.Target, l.Name = src, target, name
	return nil
}

// DeleteInterfaceLinkDefinitionRequest identifies the link to remove.
type DeleteInterfaceLinkDefinitionRequest struct {
	SourceID     string `json:"source_id"`
	Name         string `json:"name"`
	WitNamespace string `json:"wit_namespace"`
	WitPackage   string `json:"wit_package"`
}
