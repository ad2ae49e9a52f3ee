package main

import "html/template"

type Templates struct {
	Home *template.Template
}

func newTemplates() Templates {
	return Templates{
		Home: template.Must(template.ParseFS(templateFS, "templates/home.html")),
	}
}
