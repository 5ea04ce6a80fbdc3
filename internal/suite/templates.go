package suite

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"
)

const maxTemplateDepth = 10

var (
	ErrTemplateInclude = errors.New("template includes are not supported")
	ErrTemplateDepth   = errors.New("template depth exceeds maximum allowed")
)

// checkTemplate parses s the way env rendering does and rejects references
// that can never resolve at run time. Only fields under .env exist.
func checkTemplate(s string) error {
	if !strings.Contains(s, "{{") {
		return nil
	}
	t, err := template.New("suite").Option("missingkey=error").Parse(s)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}
	if len(t.Templates()) > 1 {
		return ErrTemplateInclude
	}
	if t.Tree == nil || t.Tree.Root == nil {
		return nil
	}
	return checkNode(t.Tree.Root, 0)
}

func checkNode(node parse.Node, depth int) error {
	if depth > maxTemplateDepth {
		return ErrTemplateDepth
	}
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return nil
		}
		for _, c := range n.Nodes {
			if err := checkNode(c, depth+1); err != nil {
				return err
			}
		}
	case *parse.ActionNode:
		return checkNode(n.Pipe, depth+1)
	case *parse.PipeNode:
		if n == nil {
			return nil
		}
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				if err := checkNode(arg, depth+1); err != nil {
					return err
				}
			}
		}
	case *parse.IfNode:
		return checkBranch(&n.BranchNode, depth)
	case *parse.RangeNode:
		return checkBranch(&n.BranchNode, depth)
	case *parse.WithNode:
		return checkBranch(&n.BranchNode, depth)
	case *parse.TemplateNode:
		return ErrTemplateInclude
	case *parse.FieldNode:
		if len(n.Ident) == 0 || n.Ident[0] != "env" {
			return fmt.Errorf("unknown template field %s: use .env.<name>", n.String())
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" && n.Ident[1] != "env" {
			return fmt.Errorf("unknown template field %s: use .env.<name>", n.String())
		}
	}
	return nil
}

func checkBranch(b *parse.BranchNode, depth int) error {
	if err := checkNode(b.Pipe, depth+1); err != nil {
		return err
	}
	if err := checkNode(b.List, depth+1); err != nil {
		return err
	}
	if b.ElseList != nil {
		return checkNode(b.ElseList, depth+1)
	}
	return nil
}

// requestTemplates lists every templated string of r keyed by where it
// appears, in a stable order.
func requestTemplates(r RequestSpec) []templateRef {
	var refs []templateRef
	add := func(where, s string) {
		if strings.Contains(s, "{{") {
			refs = append(refs, templateRef{where: where, text: s})
		}
	}
	add("method", r.Method)
	add("url", r.URL)
	add("path", r.Path)
	add("content_type", r.ContentType)
	add("body_file", r.BodyFile)
	for _, h := range r.Headers {
		add("header "+h.Name, h.Value)
	}
	for kind, ps := range map[string][]Param{"query": r.Queries, "form": r.Form, "param": r.Params} {
		for _, p := range ps {
			add(kind+" "+p.Name, p.Value)
			for _, v := range p.Values {
				add(kind+" "+p.Name, v)
			}
		}
	}
	for k, v := range r.PathParams {
		add("path_param "+k, v)
	}
	for k, v := range r.Cookies {
		add("cookie "+k, v)
	}
	collectBody("body", r.Body, add)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].where < refs[j].where })
	return refs
}

type templateRef struct {
	where string
	text  string
}

func collectBody(where string, v any, add func(string, string)) {
	switch b := v.(type) {
	case string:
		add(where, b)
	case map[string]any:
		for k, x := range b {
			collectBody(where+"."+k, x, add)
		}
	case []any:
		for i, x := range b {
			collectBody(fmt.Sprintf("%s[%d]", where, i), x, add)
		}
	}
}

func checkRequestTemplates(r RequestSpec) []string {
	var errs []string
	for _, ref := range requestTemplates(r) {
		if err := checkTemplate(ref.text); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ref.where, err))
		}
	}
	return errs
}
