/*

Process of analysis

Binary Executable ->
	disassemble / lift ->
Intermediate Representation (ir) ->
	verify ->
Project ->
	checkers (data-flow, vulnerability patterns)

The ir package is the substrate: fixed-width values (Bitvector),
storage locations (Variable), expressions over them (Expression),
and the Tid-addressed term structure (Def, Jmp, Blk, Sub, Program, Project)
that ties everything into a control-flow graph.

The graph is cyclic, ownership is not: parents own their terms by value,
all cross-references are Tids resolved through the owning Program.
Once built and verified the Project is read-only shared data.

*/
package ir
