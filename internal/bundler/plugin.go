package bundler

import (
	"fmt"
	"os"
	"path/filepath"

	"bundlekit/internal/loader"

	"github.com/evanw/esbuild/pkg/api"
)

const pluginName = "bundlekit-loaders"

// module is the value threaded through a tool chain.
type module struct {
	path     string
	rel      string
	contents string
	loader   api.Loader
	classes  map[string]string
}

func newLoaderPlugin(root string, table *loader.Table, runtime string) api.Plugin {
	if runtime == "" {
		runtime = "react"
	}
	return api.Plugin{
		Name: pluginName,
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				rel, err := filepath.Rel(root, args.Path)
				if err != nil {
					rel = args.Path
				}
				rule, ok := table.Match(rel)
				if !ok {
					return api.OnLoadResult{}, nil
				}
				raw, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				loaded, err := runChain(rule.Tools, module{
					path:     args.Path,
					rel:      filepath.ToSlash(rel),
					contents: string(raw),
				}, runtime)
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("%s: %w", filepath.ToSlash(rel), err)
				}
				return api.OnLoadResult{
					PluginName: pluginName,
					Contents:   &loaded.contents,
					ResolveDir: filepath.Dir(args.Path),
					Loader:     loaded.loader,
				}, nil
			})
		},
	}
}

// runChain applies tools right to left, the last tool seeing the raw file.
func runChain(tools []loader.Tool, current module, runtime string) (module, error) {
	for i := len(tools) - 1; i >= 0; i-- {
		var err error
		current, err = applyTool(tools[i], current, runtime)
		if err != nil {
			return module{}, err
		}
	}
	return current, nil
}

func applyTool(tool loader.Tool, current module, runtime string) (module, error) {
	switch tool {
	case loader.ToolScript:
		current.loader = api.LoaderJSX
	case loader.ToolCSS:
		current.loader = api.LoaderCSS
		if isCSSModule(current.path) {
			current.contents, current.classes = scopeCSSModule(current.contents, current.rel)
		}
	case loader.ToolStyle:
		if current.loader != api.LoaderCSS {
			return module{}, fmt.Errorf("style tool needs css input")
		}
		contents, err := styleModule(current.contents, current.rel, current.classes)
		if err != nil {
			return module{}, err
		}
		current.contents = contents
		current.loader = api.LoaderJS
	case loader.ToolURL:
		current.loader = api.LoaderDataURL
	case loader.ToolComponent:
		contents, err := componentModule(current.contents, current.rel, runtime)
		if err != nil {
			return module{}, err
		}
		current.contents = contents
		current.loader = api.LoaderJS
	default:
		return module{}, fmt.Errorf("%w %q", loader.ErrUnknownTool, tool)
	}
	return current, nil
}
