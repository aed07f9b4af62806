package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

const maxStringDepth = 10

// typeStringer renders types for diagnostics and logs. Free and blocked
// types get stable single-letter names within one rendering.
type typeStringer struct {
	a     *Arena
	names map[TypeID]string
	seen  *set.Set[TypeID]
}

func (a *Arena) stringer() *typeStringer {
	return &typeStringer{
		a:     a,
		names: map[TypeID]string{},
		seen:  set.New[TypeID](8),
	}
}

// TypeString renders the type at id.
func (a *Arena) TypeString(id TypeID) string {
	return a.stringer().render(id, 0)
}

// PackString renders the pack at id.
func (a *Arena) PackString(id TypePackID) string {
	return a.stringer().renderPack(id, 0)
}

func (ts *typeStringer) varName(id TypeID, prefix string) string {
	if name, ok := ts.names[id]; ok {
		return name
	}
	name := fmt.Sprintf("%s%c", prefix, 'a'+len(ts.names)%26)
	ts.names[id] = name
	return name
}

func (ts *typeStringer) render(id TypeID, depth int) string {
	if id == NoType {
		return "<none>"
	}
	id = ts.a.Follow(id)
	if depth > maxStringDepth {
		return "..."
	}
	if ts.seen.Contains(id) {
		return ts.varName(id, "t")
	}
	switch t := ts.a.Get(id).(type) {
	case *FreeType:
		return "'" + ts.varName(id, "")
	case *BlockedType:
		return "*blocked-" + ts.varName(id, "") + "*"
	case *PendingExpansionType:
		return t.Name + "<...>"
	case *TypeFunctionInstance:
		args := make([]string, 0, len(t.TypeArgs))
		for _, arg := range t.TypeArgs {
			args = append(args, ts.render(arg, depth+1))
		}
		return t.Function.Name + "<" + strings.Join(args, ", ") + ">"
	case *LocalType:
		return "l-" + t.Name
	case *FunctionType:
		ts.seen.Insert(id)
		defer ts.seen.Remove(id)
		return "(" + ts.renderPack(t.ArgPack, depth+1) + ") -> " + ts.renderRets(t.RetPack, depth+1)
	case *TableType:
		if t.Name != "" {
			return t.Name
		}
		ts.seen.Insert(id)
		defer ts.seen.Remove(id)
		keys := make([]string, 0, len(t.Props))
		for k := range t.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			fields = append(fields, k+": "+ts.render(t.Props[k].ReadType, depth+1))
		}
		if t.Indexer != nil {
			fields = append(fields, "["+ts.render(t.Indexer.KeyType, depth+1)+"]: "+ts.render(t.Indexer.ValueType, depth+1))
		}
		open := "{"
		if t.State == TableUnsealed || t.State == TableFree {
			open = "{|"
			return open + " " + strings.Join(fields, ", ") + " |}"
		}
		return open + " " + strings.Join(fields, ", ") + " }"
	case *MetatableType:
		ts.seen.Insert(id)
		defer ts.seen.Remove(id)
		return "setmetatable(" + ts.render(t.Table, depth+1) + ", " + ts.render(t.Metatable, depth+1) + ")"
	case *ClassType:
		return t.Name
	case *UnionType:
		parts := make([]string, 0, len(t.Options))
		for _, o := range t.Options {
			parts = append(parts, ts.render(o, depth+1))
		}
		return strings.Join(parts, " | ")
	case *IntersectionType:
		parts := make([]string, 0, len(t.Parts))
		for _, p := range t.Parts {
			parts = append(parts, ts.render(p, depth+1))
		}
		return strings.Join(parts, " & ")
	case *PrimitiveType:
		return t.Kind.String()
	case *SingletonType:
		if t.IsString {
			return fmt.Sprintf("%q", t.StringValue)
		}
		return fmt.Sprint(t.BoolValue)
	case *AnyType:
		return "any"
	case *UnknownType:
		return "unknown"
	case *NeverType:
		return "never"
	case *ErrorType:
		return "*error-type*"
	case *GenericType:
		if t.Name != "" {
			return t.Name
		}
		return ts.varName(id, "g")
	default:
		return fmt.Sprintf("<%s>", t.termKind())
	}
}

// renderRets parenthesizes a return pack unless it is exactly one type.
func (ts *typeStringer) renderRets(id TypePackID, depth int) string {
	rendered := ts.renderPack(id, depth)
	if id != NoPack {
		flat := ts.a.Flatten(id)
		if len(flat.Head) == 1 && flat.Tail == nil {
			return rendered
		}
	}
	return "(" + rendered + ")"
}

func (ts *typeStringer) renderPack(id TypePackID, depth int) string {
	if id == NoPack {
		return ""
	}
	if depth > maxStringDepth {
		return "..."
	}
	flat := ts.a.Flatten(id)
	parts := make([]string, 0, len(flat.Head)+1)
	for _, h := range flat.Head {
		parts = append(parts, ts.render(h, depth+1))
	}
	switch tail := flat.Tail.(type) {
	case nil:
	case *VariadicPack:
		parts = append(parts, "..."+ts.render(tail.Elem, depth+1))
	case *GenericPack:
		parts = append(parts, tail.Name+"...")
	case *BlockedPack:
		parts = append(parts, "*blocked-pack*")
	case *ErrorPack:
		parts = append(parts, "*error-pack*")
	}
	return strings.Join(parts, ", ")
}
