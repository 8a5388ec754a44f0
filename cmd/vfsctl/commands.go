package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/gobeaver/vfskit"
)

// openManager creates a manager from the environment. Relative names
// resolve against the working directory.
func openManager(ctx context.Context) (*vfskit.Manager, error) {
	m, err := vfskit.NewFromEnv()
	if err != nil {
		return nil, err
	}
	if m.HasProvider(vfskit.LocalScheme) {
		if wd, err := os.Getwd(); err == nil {
			if base, err := m.ToFileObject(ctx, wd); err == nil {
				m.SetBaseFile(base)
			}
		}
	}
	return m, nil
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("%s expects %d argument(s): %s", cmd.Name, n, cmd.ArgsUsage)
	}
	return nil
}

// withFile resolves the first argument and runs fn on it.
func withFile(ctx context.Context, cmd *cli.Command, fn func(*vfskit.Manager, vfskit.FileObject) error) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	m, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	f, err := m.Resolve(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(m, f)
}

func parseCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "print the parts of a URI",
		ArgsUsage: "URI",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			m, err := openManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			name, err := m.ParseURI(cmd.Args().First())
			if err != nil {
				return err
			}
			printName(stdout, name, "")
			return nil
		},
	}
}

func printName(w io.Writer, name *vfskit.FileName, indent string) {
	field := func(k string, v any) {
		fmt.Fprintf(w, "%s%-10s %v\n", indent, k+":", v)
	}
	field("uri", name.FriendlyURI())
	field("scheme", name.Scheme())
	field("root", name.FriendlyRootURI())
	field("path", name.Path())
	field("type", name.Type())
	field("base", name.BaseName())
	if ext := name.Extension(); ext != "" {
		field("extension", ext)
	}
	field("depth", name.Depth())
	switch name.Kind() {
	case vfskit.NameHost, vfskit.NameURL:
		field("host", name.HostName())
		field("port", name.Port())
		if name.UserName() != "" {
			field("user", name.UserName())
		}
		if q, ok := name.QueryString(); ok {
			field("query", q)
		}
	case vfskit.NameLayered:
		fmt.Fprintf(w, "%souter:\n", indent)
		printName(w, name.OuterName(), indent+"  ")
	}
}

func relativeCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "relative",
		Usage:     "print the path from BASE to NAME",
		ArgsUsage: "BASE NAME",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			m, err := openManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			base, err := m.ParseURI(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			name, err := m.ParseURI(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			if base.RootURI() != name.RootURI() {
				return fmt.Errorf("%s and %s are in different file systems", base, name)
			}
			fmt.Fprintln(stdout, base.RelativeName(name))
			return nil
		},
	}
}

func resolveCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "resolve PATH against BASE",
		ArgsUsage: "BASE PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scope",
				Value: vfskit.ScopeFileSystem.String(),
				Usage: "restrict the result: filesystem, child, descendent or descendent_or_self",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			scope, err := vfskit.ParseNameScope(cmd.String("scope"))
			if err != nil {
				return err
			}
			m, err := openManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			base, err := m.ParseURI(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			name, err := m.ResolveName(base, cmd.Args().Get(1), scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, name.FriendlyURI())
			return nil
		},
	}
}

func infoCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print the metadata of a file",
		ArgsUsage: "URI",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withFile(ctx, cmd, func(_ *vfskit.Manager, f vfskit.FileObject) error {
				info, err := f.Info(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "uri:      %s\n", f.Name())
				fmt.Fprintf(stdout, "type:     %s\n", info.Type)
				if info.Type.HasContent() {
					fmt.Fprintf(stdout, "size:     %d\n", info.Size)
					fmt.Fprintf(stdout, "content:  %s\n", info.ContentType)
				}
				if !info.ModTime.IsZero() {
					fmt.Fprintf(stdout, "modified: %s\n", info.ModTime.UTC().Format("2006-01-02T15:04:05Z"))
				}
				if p, ok := f.LocalPath(); ok {
					fmt.Fprintf(stdout, "local:    %s\n", p)
				}
				return nil
			})
		},
	}
}

func lsCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list the files below a folder",
		ArgsUsage: "URI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "glob",
				Usage: "only list names matching `PATTERN`; patterns with a / match the relative path",
			},
			&cli.IntFlag{
				Name:  "depth",
				Value: 1,
				Usage: "maximum depth to descend, -1 for no limit",
			},
			&cli.BoolFlag{
				Name:  "files",
				Usage: "list files only",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withFile(ctx, cmd, func(_ *vfskit.Manager, base vfskit.FileObject) error {
				exists, err := base.Exists(ctx)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("%s: %w", base.Name(), vfskit.ErrNotFound)
				}

				selectors := []vfskit.FileSelector{vfskit.Depth(1, int(cmd.Int("depth")))}
				if g := cmd.String("glob"); g != "" {
					selectors = append(selectors, vfskit.Glob(g))
				}
				if cmd.Bool("files") {
					selectors = append(selectors, vfskit.FilesOnly())
				}

				files, err := vfskit.FindFiles(ctx, base, vfskit.And(selectors...), false)
				if err != nil {
					return err
				}
				for _, f := range files {
					rel := base.Name().RelativeName(f.Name())
					if t, err := f.Type(ctx); err == nil && t.HasChildren() && !strings.HasSuffix(rel, "/") {
						rel += "/"
					}
					fmt.Fprintln(stdout, rel)
					if f != base {
						f.Close()
					}
				}
				return nil
			})
		},
	}
}

func catCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "write the content of a file to stdout",
		ArgsUsage: "URI",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withFile(ctx, cmd, func(_ *vfskit.Manager, f vfskit.FileObject) error {
				_, err := vfskit.CopyContent(ctx, f, stdout)
				return err
			})
		},
	}
}

func sumCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "sum",
		Usage:     "print the checksum of a file",
		ArgsUsage: "URI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "algorithm",
				Aliases: []string{"a"},
				Value:   string(vfskit.ChecksumSHA256),
				Usage:   "md5, sha1, sha256, sha512, crc32 or xxhash",
			},
			&cli.StringFlag{
				Name:  "verify",
				Usage: "compare with `SUM` instead of printing",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			algo := vfskit.ChecksumAlgorithm(cmd.String("algorithm"))
			return withFile(ctx, cmd, func(_ *vfskit.Manager, f vfskit.FileObject) error {
				if expected := cmd.String("verify"); expected != "" {
					ok, err := vfskit.VerifyChecksum(ctx, f, expected, algo)
					if err != nil {
						return err
					}
					if !ok {
						return errors.New("checksum mismatch")
					}
					fmt.Fprintln(stdout, "OK")
					return nil
				}
				sum, err := vfskit.Checksum(ctx, f, algo)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s  %s\n", sum, f.Name())
				return nil
			})
		},
	}
}

func encryptCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "encrypt",
		Usage:     "encrypt a password for use in URIs",
		ArgsUsage: "PASSWORD",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			m, err := openManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			wrapped, err := vfskit.WrapPassword(m.Cryptor(), cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, wrapped)
			return nil
		},
	}
}
