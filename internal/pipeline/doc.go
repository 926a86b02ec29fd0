// Package pipeline implements the markdown composition pipeline.
//
// A source file goes through a fixed sequence of stages:
//   - Parse: line normalization, front matter split, goldmark AST
//   - ResolveIncludes: @include directives replaced by the included files
//   - RebaseLinks: relative links in included files made relative to the root
//   - GenerateTOC: table of contents injected at the TOC heading
//   - Serialize: AST written back as canonical markdown
//
// Every stage is a plain function over a *Document. Nodes spliced in from
// other files live under a Fragment node that carries their source bytes, so
// one tree can hold text from several files at once.
//
// HTMLRenderer is separate from the stages above: it turns composed markdown
// into a standalone HTML preview page.
package pipeline
