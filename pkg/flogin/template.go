// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package flogin

import (
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SettingsTemplate builds the SettingsTemplate.yaml file the host renders as
// the plugin's settings form.
type SettingsTemplate struct {
	fields []TemplateField
}

// TemplateField is one form field in a settings template.
type TemplateField struct {
	Type       string         `yaml:"type"`
	Attributes map[string]any `yaml:"attributes"`
}

// TextBlock adds a static block of descriptive text.
func (t *SettingsTemplate) TextBlock(description string) *SettingsTemplate {
	return t.add("textBlock", map[string]any{"description": description})
}

// Input adds a single-line text input stored under name.
func (t *SettingsTemplate) Input(name, label, description string, defaultValue string) *SettingsTemplate {
	return t.add("input", fieldAttrs(name, label, description, defaultValue))
}

// Textarea adds a multi-line text input stored under name.
func (t *SettingsTemplate) Textarea(name, label, description string, defaultValue string) *SettingsTemplate {
	return t.add("textarea", fieldAttrs(name, label, description, defaultValue))
}

// Checkbox adds a boolean toggle stored under name.
func (t *SettingsTemplate) Checkbox(name, label, description string, defaultValue bool) *SettingsTemplate {
	return t.add("checkbox", fieldAttrs(name, label, description, defaultValue))
}

// Dropdown adds a fixed-choice selector stored under name.
func (t *SettingsTemplate) Dropdown(name, label, description string, options []string, defaultValue string) *SettingsTemplate {
	attrs := fieldAttrs(name, label, description, defaultValue)
	attrs["options"] = options
	return t.add("dropdown", attrs)
}

func (t *SettingsTemplate) add(fieldType string, attrs map[string]any) *SettingsTemplate {
	t.fields = append(t.fields, TemplateField{Type: fieldType, Attributes: attrs})
	return t
}

func fieldAttrs(name, label, description string, defaultValue any) map[string]any {
	attrs := map[string]any{
		"name":  name,
		"label": label,
	}
	if description != "" {
		attrs["description"] = description
	}
	if defaultValue != nil {
		attrs["defaultValue"] = defaultValue
	}
	return attrs
}

// Fields returns the fields added so far, in order.
func (t *SettingsTemplate) Fields() []TemplateField {
	return t.fields
}

// Render marshals the template body.
func (t *SettingsTemplate) Render() ([]byte, error) {
	doc := map[string]any{"body": t.fields}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, oops.Code("TEMPLATE_RENDER_FAILED").Wrap(err)
	}
	return data, nil
}

// WriteFile renders the template to path, conventionally
// "SettingsTemplate.yaml" in the plugin directory.
func (t *SettingsTemplate) WriteFile(path string) error {
	data, err := t.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oops.Code("TEMPLATE_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
