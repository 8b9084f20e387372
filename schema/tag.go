package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldTag is the parsed form of an elm struct tag:
//
//	`elm:"column_name,key,nullable,maxlen=64,index=ix_text,ondelete=cascade"`
//	`elm:",fk=Owner,join=Author,join=Editor"`
//	`elm:"-"`
type fieldTag struct {
	skip      bool
	name      string
	key       bool
	auto      bool
	nullable  bool
	maxLength int
	index     string
	onDelete  ReferentialAction
	onUpdate  ReferentialAction
	fk        string
	joins     []string
}

func parseTag(tag string) (*fieldTag, error) {
	t := &fieldTag{}
	if tag == "-" {
		t.skip = true
		return t, nil
	}
	if tag == "" {
		return t, nil
	}
	parts := strings.Split(tag, ",")
	t.name = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		opt, value, _ := strings.Cut(part, "=")
		var err error
		switch strings.ToLower(opt) {
		case "key", "pk", "primary":
			t.key = true
		case "auto":
			t.auto = true
		case "nullable", "null":
			t.nullable = true
		case "maxlen", "size":
			if t.maxLength, err = strconv.Atoi(value); err != nil || t.maxLength < 0 {
				return nil, fmt.Errorf("schema: invalid maxlen %q", value)
			}
		case "index":
			t.index = value
		case "ondelete":
			t.onDelete, err = ParseReferentialAction(value)
		case "onupdate":
			t.onUpdate, err = ParseReferentialAction(value)
		case "fk":
			t.fk = value
		case "join":
			if value == "" {
				return nil, fmt.Errorf("schema: empty join in tag %q", tag)
			}
			t.joins = append(t.joins, value)
		default:
			return nil, fmt.Errorf("schema: unknown tag option %q", opt)
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
