package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/typesystem"
)

// HostImports types the functions the namespace header imports from host
// packages. Each import is written like a type declaration,
// (:: (name Param...) Return), and may not carry effects.
func (a *Analyzer) HostImports() ([]*ast.HostImportDecl, error) {
	var out []*ast.HostImportDecl
	for _, host := range a.resolver.NSEnv.Header.Hosts {
		for _, form := range host.Decls {
			list, ok := form.(*reader.ListForm)
			if !ok || !headIs(list, typeDeclSym) {
				return nil, malformed(form.Pos(), "host import of %s expects (:: name Type), got %s", host.Package, form)
			}
			name, t, rest, err := a.signature(a.newTypeBuilder(), list)
			if err != nil {
				return nil, err
			}
			if len(rest) > 0 {
				return nil, malformed(list.Loc, "host function %s/%s cannot declare effects", host.Short, name)
			}
			out = append(out, &ast.HostImportDecl{
				Alias:   host.Short,
				Package: host.Package,
				Sym:     name,
				Type:    typesystem.Type{Mono: t},
				Loc:     list.Loc,
			})
		}
	}
	return out, nil
}
