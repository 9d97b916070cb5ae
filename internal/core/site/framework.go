package site

import (
	"encoding/json"
)

// Framework names a detected web framework.
type Framework string

const (
	FrameworkStatic         Framework = "static"
	FrameworkNextJS         Framework = "nextjs"
	FrameworkCreateReactApp Framework = "create-react-app"
	FrameworkGatsby         Framework = "gatsby"
	FrameworkNuxt           Framework = "nuxtjs"
	FrameworkAngular        Framework = "angular"
	FrameworkSvelte         Framework = "svelte"
	FrameworkSvelteKit      Framework = "sveltekit"
	FrameworkAstro          Framework = "astro"
	FrameworkVite           Framework = "vite"
	FrameworkEleventy       Framework = "eleventy"
	FrameworkHugo           Framework = "hugo"
	FrameworkJekyll         Framework = "jekyll"
)

// markerFiles maps root-level files to the framework they indicate, checked in order.
var markerFiles = []struct {
	file      string
	framework Framework
}{
	{"next.config.js", FrameworkNextJS},
	{"gatsby-config.js", FrameworkGatsby},
	{"nuxt.config.js", FrameworkNuxt},
	{"angular.json", FrameworkAngular},
	{"svelte.config.js", FrameworkSvelte},
	{".eleventy.js", FrameworkEleventy},
	{"astro.config.mjs", FrameworkAstro},
	{"hugo.toml", FrameworkHugo},
	{"config.toml", FrameworkHugo},
	{"_config.yml", FrameworkJekyll},
}

// dependencyMarkers maps package.json dependencies to frameworks, checked in order.
var dependencyMarkers = []struct {
	dep       string
	framework Framework
}{
	{"next", FrameworkNextJS},
	{"react-scripts", FrameworkCreateReactApp},
	{"gatsby", FrameworkGatsby},
	{"nuxt", FrameworkNuxt},
	{"@angular/core", FrameworkAngular},
	{"@sveltejs/kit", FrameworkSvelteKit},
	{"svelte", FrameworkSvelte},
	{"astro", FrameworkAstro},
	{"vite", FrameworkVite},
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DetectFramework guesses the framework of a checkout. packageJSON is the raw
// root package.json (nil when absent) and rootFiles the set of root-level file
// names. Unparseable package.json content is ignored.
func DetectFramework(packageJSONData []byte, rootFiles map[string]bool) Framework {
	if len(packageJSONData) > 0 {
		var pkg packageJSON
		if err := json.Unmarshal(packageJSONData, &pkg); err == nil {
			for _, m := range dependencyMarkers {
				if _, ok := pkg.Dependencies[m.dep]; ok {
					return m.framework
				}
				if _, ok := pkg.DevDependencies[m.dep]; ok {
					return m.framework
				}
			}
		}
	}

	for _, m := range markerFiles {
		if rootFiles[m.file] {
			return m.framework
		}
	}

	return FrameworkStatic
}
