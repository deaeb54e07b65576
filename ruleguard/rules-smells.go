package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Consecutive guards with the same result can be merged:
	//   if a { return err }
	//   if b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// logging keeps diagnostics on the zap logger. cmd/ may still print to its writer.
func logging(m dsl.Matcher) {
	m.Match(`fmt.Print($*_)`, `fmt.Println($*_)`, `fmt.Printf($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/`)).
		Report(`use the injected *zap.Logger instead of printing to stdout`)

	m.Match(`log.Print($*_)`, `log.Println($*_)`, `log.Printf($*_)`, `log.Fatal($*_)`, `log.Fatalf($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/`) && m.File().Imports("log")).
		Report(`use the injected *zap.Logger instead of the standard log package`)
}

// sessions flags provider sessions that are opened without the scoped helper.
func sessions(m dsl.Matcher) {
	m.Match(`$s, $err := $c.Open($ctx, $endpoint); $*_`).
		Where(m["c"].Type.Implements(`github.com/matiasleandrokruk/explorer/internal/domain/tool.Connector`) &&
			!m.File().PkgPath.Matches(`/domain/tool$`)).
		Report(`open provider sessions with tool.WithSession so they are always closed`)
}
