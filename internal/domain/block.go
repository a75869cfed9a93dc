package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidBlockType is returned when a block type name is not recognised.
var ErrInvalidBlockType = errors.New("invalid block type")

type BlockType string

const (
	BlockTypeText         BlockType = "TEXT"
	BlockTypeHeading1     BlockType = "HEADING_1"
	BlockTypeHeading2     BlockType = "HEADING_2"
	BlockTypeHeading3     BlockType = "HEADING_3"
	BlockTypeBulletList   BlockType = "BULLET_LIST"
	BlockTypeNumberedList BlockType = "NUMBERED_LIST"
	BlockTypeTodo         BlockType = "TODO"
	BlockTypeQuote        BlockType = "QUOTE"
	BlockTypeCode         BlockType = "CODE"
	BlockTypeDivider      BlockType = "DIVIDER"
	BlockTypeImage        BlockType = "IMAGE"
	BlockTypeTable        BlockType = "TABLE"
	BlockTypeCalendar     BlockType = "CALENDAR"
	BlockTypeDatabase     BlockType = "DATABASE"
)

// BlockTypes lists every block type in declaration order.
var BlockTypes = []BlockType{
	BlockTypeText, BlockTypeHeading1, BlockTypeHeading2, BlockTypeHeading3,
	BlockTypeBulletList, BlockTypeNumberedList, BlockTypeTodo, BlockTypeQuote,
	BlockTypeCode, BlockTypeDivider, BlockTypeImage, BlockTypeTable,
	BlockTypeCalendar, BlockTypeDatabase,
}

// ParseBlockType resolves a type name case-insensitively.
func ParseBlockType(s string) (BlockType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range BlockTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBlockType, s)
}

// PropertyCompleted is the todo checkbox property key.
const PropertyCompleted = "completed"

// Properties holds free-form block attributes such as the todo "completed" flag.
type Properties map[string]any

type Block struct {
	ID         string     `json:"id"`
	Type       BlockType  `json:"type"`
	Content    string     `json:"content"`
	Properties Properties `json:"properties"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Children   []Block    `json:"children"`
	NeedsSync  bool       `json:"needsSync"`
}

// NewBlock returns an empty block of the given type with a fresh id.
func NewBlock(t BlockType) Block {
	now := time.Now()
	return Block{
		ID:         uuid.New().String(),
		Type:       t,
		Properties: Properties{},
		CreatedAt:  now,
		UpdatedAt:  now,
		Children:   []Block{},
	}
}

// Completed reports the todo checkbox state. Missing or non-bool values count as unchecked.
func (b Block) Completed() bool {
	v, _ := b.Properties[PropertyCompleted].(bool)
	return v
}

// Clone returns a deep copy that shares no maps or slices with b.
func (b Block) Clone() Block {
	out := b
	out.Properties = cloneProperties(b.Properties)
	if b.Children != nil {
		out.Children = make([]Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal compares two blocks structurally.
func (b Block) Equal(o Block) bool {
	if b.ID != o.ID || b.Type != o.Type || b.Content != o.Content || b.NeedsSync != o.NeedsSync {
		return false
	}
	if !b.CreatedAt.Equal(o.CreatedAt) || !b.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	return b.sameBody(o)
}

// sameBody compares the renderable parts of a block, ignoring timestamps.
func (b Block) sameBody(o Block) bool {
	if b.Type != o.Type || b.Content != o.Content {
		return false
	}
	if !propertiesEqual(b.Properties, o.Properties) {
		return false
	}
	if len(b.Children) != len(o.Children) {
		return false
	}
	for i := range b.Children {
		if !b.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

func propertiesEqual(a, b Properties) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func cloneProperties(p Properties) Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types produced by JSON/BSON decoding.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Properties:
		return cloneProperties(t)
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
