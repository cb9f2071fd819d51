// Command uppercase_title is a validator plugin requiring upper case note
// titles. Build it with
//
//	go build -buildmode=plugin -o plugins/uppercase_title.so ./sample/uppercase_title
package main

import (
	"strings"

	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

var Validators = map[string]func(*viewmodel.Model){
	"notes": func(m *viewmodel.Model) {
		if t := m.Values["title"]; t != strings.ToUpper(t) {
			m.AddCustomError("title", "must be upper case")
		}
	},
}

func main() {}
