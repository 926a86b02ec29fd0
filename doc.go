// Package mdcompose builds markdown documents out of markdown sources.
//
// # Quick Start
//
// Create a composer and build a list of source/output pairs:
//
//	c := mdcompose.New()
//	results, err := c.Compose(ctx, mdcompose.DefaultPairs())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Println(r.Output, r.Changed)
//	}
//
// # Composition Pipeline
//
// Every pair goes through the same steps, in order:
//
//  1. Read the source file
//  2. Parse it with goldmark (line endings normalized, front matter split off)
//  3. Replace @include "path" paragraphs with the referenced files, recursively
//  4. Rebase relative links in included files onto the root document
//  5. Insert a table of contents, when the pair asks for one
//  6. Serialize the tree back to canonical markdown
//  7. Write the output atomically, skipping files whose content is unchanged
//
// A pair may also name an HTML preview, rendered from the composed markdown
// with syntax highlighting.
//
// # Include Directives
//
// A paragraph made only of an include directive is replaced by the file it
// names:
//
//	@include "partials/install.md"
//	@include 'examples/main.go'
//
// Paths resolve against the directory of the file holding the directive.
// Files that are not markdown are included as fenced code blocks tagged with
// their extension. Cycles fail with *CircularIncludeError.
//
// # Concurrency
//
// Compose builds pairs concurrently, limited by WithWorkers, and writes
// nothing unless every pair composed. Outputs are then written in pair order.
//
// # Error Handling
//
// Errors are typed and match sentinels through errors.Is:
//
//	_, err := c.Compose(ctx, pairs)
//	var nf *mdcompose.NotFoundError
//	if errors.As(err, &nf) {
//	    fmt.Println("missing:", nf.Path)
//	}
//	if errors.Is(err, mdcompose.ErrCircularInclude) {
//	    // ...
//	}
//
// Transform failures arrive as *PipelineError naming the source and step.
package mdcompose
