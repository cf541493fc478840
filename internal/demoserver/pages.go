package demoserver

import "html/template"

// PageDefinition describes one fixture page.
type PageDefinition struct {
	Path        string
	Description string
	tmpl        *template.Template
}

type pageData struct {
	Title      string
	Pages      []PageDefinition
	Images     []int
	ImageSize  int
	TallHeight int
	Delay      int
}

// GetAllPages returns all fixture page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		{Path: "/", Description: "Index of fixture pages", tmpl: indexTmpl},
		{Path: "/lazy", Description: "Tall page whose images load only when scrolled into view", tmpl: lazyTmpl},
		{Path: "/tall", Description: "Tall page without images", tmpl: tallTmpl},
		{Path: "/slow", Description: "Page whose response is delayed by ?ms=", tmpl: slowTmpl},
	}
}

const baseCSS = `
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid #3d63dd; padding-bottom: 10px; }
        .card { background: white; border-radius: 8px; padding: 20px; margin: 15px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
`

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>` + baseCSS + `</style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <ul class="pages">
    {{range .Pages}}{{if ne .Path "/"}}
        <li class="card"><a href="{{.Path}}">{{.Path}}</a> <span class="desc">{{.Description}}</span></li>
    {{end}}{{end}}
    </ul>
</body>
</html>`))

var lazyTmpl = template.Must(template.New("lazy").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>` + baseCSS + `
        .spacer { height: 900px; }
        img.lazy { display: block; width: {{.ImageSize}}px; min-height: 1px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    {{range .Images}}
    <div class="card">
        <div class="spacer"></div>
        <img class="lazy" data-src="/img/{{.}}.png" alt="block {{.}}">
    </div>
    {{end}}
    <script>
        const observer = new IntersectionObserver((entries) => {
            entries.forEach((entry) => {
                if (!entry.isIntersecting) return;
                const img = entry.target;
                img.src = img.dataset.src;
                observer.unobserve(img);
            });
        });
        document.querySelectorAll('img.lazy').forEach((img) => observer.observe(img));
    </script>
</body>
</html>`))

var tallTmpl = template.Must(template.New("tall").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>` + baseCSS + `
        .tall { height: {{.TallHeight}}px; background: linear-gradient(#ffffff, #3d63dd); }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="tall"></div>
    <footer id="bottom">end of page</footer>
</body>
</html>`))

var slowTmpl = template.Must(template.New("slow").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>` + baseCSS + `</style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p class="card">Delayed by <span id="delay">{{.Delay}}</span> ms.</p>
</body>
</html>`))
