package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/poiesic/sprintly/core"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// If we're in the core subpackage, cd up to project root
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/sprintly/core"),
	)
	if err != nil {
		panic(err)
	}

	g.AddDefinedType(reflect.TypeFor[core.ID]())
	g.AddDefinedType(reflect.TypeFor[core.Role]())

	// Unix micro timestamps
	tm := typeops.WithTimeUnit(typeops.Micro)
	// Fixed-width floats: embeddings are dense and rarely small integers
	fixed := typeops.WithNumEncoding(typeops.Raw)

	err = g.AddStruct(reflect.TypeFor[core.Entity](),
		structops.WithField(), // Id
		structops.WithField(), // FirstName
		structops.WithField(), // LastName
		structops.WithField(), // Name
		structops.WithField(), // Email
		structops.WithField(), // LinkedInURL
		structops.WithField(), // Company
		structops.WithField(), // Position
		structops.WithField(tm),
		structops.WithField(), // Role
		structops.WithField(), // SectorFocus
		structops.WithField(), // StageFocus
		structops.WithField(), // Location
		structops.WithField(), // CheckSizeMin
		structops.WithField(), // CheckSizeMax
		structops.WithField(), // InvestmentThesis
		structops.WithField(), // Tags
		structops.WithField(typeops.WithElem(fixed)),
		structops.WithField(fixed),
		structops.WithField(tm),
		structops.WithField(tm),
		structops.WithField(tm),
		structops.WithField()) // Metadata
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Connection](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(fixed),
		structops.WithField(tm))
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Checkpoint](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(tm))
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	err = os.WriteFile("./core/records_mus.gen.go", bs, 0644)
	if err != nil {
		panic(err)
	}
}
