package knowledgebase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Genes []GeneEntry `yaml:"genes"`
}

// LoadFile reads a YAML knowledge base from disk.
func LoadFile(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base %s: %w", path, err)
	}
	defer f.Close()

	kb, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base %s: %w", path, err)
	}
	return kb, nil
}

// Load decodes a YAML knowledge base.
func Load(r io.Reader) (*KnowledgeBase, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base: %w", err)
	}
	return New(doc.Genes)
}

// WriteYAML encodes the knowledge base in the format read by Load.
func (kb *KnowledgeBase) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Genes: kb.Entries()}); err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	return enc.Close()
}

// Fingerprint returns the hex SHA-256 of the YAML encoding. Equal tables give equal
// fingerprints regardless of the file they were loaded from.
func (kb *KnowledgeBase) Fingerprint() (string, error) {
	h := sha256.New()
	if err := kb.WriteYAML(h); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FromConfig returns the knowledge base at path, or the built-in tables when path is empty.
func FromConfig(path string) (*KnowledgeBase, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
