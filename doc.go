/*
Command voz runs and compiles programs for the voz register machine.

A voz program is a list of constants (strings) and a list of instructions,
each an opcode with three word operands. Memory is a fixed file of 1024
words; buffers 0, 1 and 2 are the process input, output and error streams,
and every file or connection the program opens is numbered from 3 on.

Usage:

	voz [global flags] <command> [flags] [program | -- args...]

Commands:

	run    interpret a program to completion; the exit status is the halt code
	build  generate x86-64 Linux NASM assembly for a program
	pack   convert a program to a CBOR image (.vozc)

A program is either one program file (.yaml, .yml, .toml or .vozc), or
command line arguments: leading non-numeric arguments are constants, and the
rest are (opcode, a, b, c) quadruples. So

	voz run -- "Hello World!"$'\n' 18 0 0 0 24 1 0 13

prints a greeting. Global flags:

	-config path  configuration file (default voz.toml, when present)
	-v            increase log verbosity; may be repeated
	-trace        log every executed instruction
	-dump         dump machine state to stderr after run
	-timeout d    stop run after duration d

The configuration file is TOML:

	[log]
	verbosity = 1
	file = "voz.log"

	[run]
	trace = false
	dump = false
	timeout = "10s"
	inputs = ["header.txt"]

	[build]
	output = "out.asm"

Flags given on the command line override the configuration file.
*/
package main
