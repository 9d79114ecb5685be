// Package harness provides conformance testing for pattern documents.
//
// A scenario formats a list of inputs in one language and checks each
// output against an exact expectation, an expected error kind, and
// property assertions. Whole-scenario output is compared against golden
// files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	language: stmt
//	document: ../languages/stmt.cue   # optional, relative to this file
//	settings:                          # optional
//	  indent: "    "
//	  max_blank_lines: 1
//	  final_newline: true
//	cases:
//	  - name: nested-block
//	    input: "a{b;}"
//	    expect: |-
//	      a {
//	        b;
//	      }
//	    assertions:
//	      - type: idempotent
//	      - type: max_blank_lines
//	        value: "1"
//	  - name: stray-brace
//	    input: "}"
//	    error: PARSING
//
// # Assertion Types
//
//   - idempotent: formatting the output again leaves it unchanged
//   - preserves_text: output equals input once all whitespace is removed
//   - max_blank_lines: no run of empty lines longer than value
//   - contains: output contains value
//
// # Golden Files
//
// Result.Snapshot renders one "=== <case>" section per case holding the
// output or "error: <KIND>". Golden files live in a golden/ directory next
// to the scenario file (GoldenPath). Go tests compare them with
// RunWithGolden (goldie); the CLI uses CompareGolden and UpdateGolden.
//
// # Deterministic Testing
//
// Each case runs in a fresh Formatter with a discarded logger and
// sequential job ids, so two runs of a scenario are byte-identical.
package harness
