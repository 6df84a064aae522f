package linker

import (
	"golang.org/x/sync/errgroup"

	"wasmld/pkg/utils"
)

// ReadInputFiles opens every path in remaining ("-lname" searches the
// library paths), registers the objects it finds and parses them in
// parallel.
func ReadInputFiles(ctx *Context, remaining []string) error {
	for _, arg := range remaining {
		var file *File
		var err error
		if name, ok := utils.RemovePrefix(arg, "-l"); ok {
			file, err = FindLibrary(ctx, name)
		} else {
			file, err = OpenFile(arg)
		}
		if err != nil {
			return err
		}

		ctx.Files = append(ctx.Files, file)
		if err := ReadFile(ctx, file); err != nil {
			return err
		}
	}

	return ParseObjectFiles(ctx)
}

// ReadFile registers the objects contained in file without parsing them.
// Archive members stay dead unless Args.WholeArchive is set.
func ReadFile(ctx *Context, file *File) error {
	ft := GetFileType(file.Contents)
	switch ft {
	case FileTypeObject:
		ctx.Objs = append(ctx.Objs, NewObjectFile(file, true))
	case FileTypeArchive:
		members, err := ReadArchiveMembers(file)
		if err != nil {
			return err
		}
		for _, child := range members {
			if GetFileType(child.Contents) != FileTypeObject {
				return malformedf(child.Name, 0, "archive member is not a wasm object")
			}
			ctx.Objs = append(ctx.Objs, NewObjectFile(child, ctx.Args.WholeArchive))
		}
	case FileTypeEmpty:
		ctx.Logger.Warn().Str("file", file.Name).Msg("ignoring empty input file")
	default:
		return malformedf(file.Name, 0, "unknown file type")
	}
	return nil
}

// ParseObjectFiles parses every registered object. Files are independent,
// so they are parsed concurrently.
func ParseObjectFiles(ctx *Context) error {
	g := new(errgroup.Group)
	g.SetLimit(ctx.jobs())
	for _, obj := range ctx.Objs {
		g.Go(func() error {
			return obj.Parse(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, obj := range ctx.Objs {
		ctx.Logger.Debug().
			Str("file", obj.File.Name).
			Bool("alive", obj.IsAlive).
			Int("segments", len(obj.InputSegments)).
			Int("functions", len(obj.InputFunctions)).
			Msg("parsed object")
	}
	return nil
}
