package vfskit

import "strings"

// resolveName resolves name against base. A name with a registered scheme is
// parsed as an absolute URI; any other name is a path, absolute within the
// root of base when it starts with a separator and relative to base
// otherwise. The result must lie within scope of base.
func resolveName(vctx Context, base *FileName, name string, scope NameScope) (*FileName, error) {
	realBase := base
	if base.URIStyle() && base.IsFile() {
		if p := base.Parent(); p != nil {
			realBase = p
		}
	}

	name, _ = FixSeparators(name)

	if scheme, _, ok := ExtractScheme(name); ok && knownScheme(vctx, scheme) {
		resolved, err := vctx.ParseURI(name)
		if err != nil {
			return nil, err
		}
		if !realBase.IsDescendent(resolved, scope) && scope != ScopeFileSystem {
			return nil, newError(KindInvalidDescendentName, name)
		}
		return resolved, nil
	}

	path := name
	if name == "" || name[0] != separatorChar {
		basePath := realBase.Path()
		if !strings.HasSuffix(basePath, separator) {
			basePath += separator
		}
		path = basePath + name
	}

	resolvedPath, t, err := NormalisePath(path, realBase.URIStyle())
	if err != nil {
		return nil, err
	}
	if !checkName(realBase.Path(), resolvedPath, scope, realBase.URIStyle()) {
		return nil, newError(KindInvalidDescendentName, name)
	}

	if vctx != nil {
		full := strings.TrimSuffix(realBase.RootURI(), separator) + resolvedPath
		resolved, err := vctx.ParseURI(full)
		if err == nil {
			return resolved, nil
		}
		if !IsKind(err, KindUnknownScheme) {
			return nil, err
		}
	}
	return realBase.CreateName(resolvedPath, t), nil
}

func knownScheme(vctx Context, scheme string) bool {
	if vctx == nil {
		return false
	}
	m := vctx.Manager()
	return m != nil && m.HasProvider(scheme)
}
