package asm

// Register is a scalar or VPU register name as written in generated code.
type Register string

// Contract documents the fixed register roles of every generated kernel.
// Callers pass arguments in a0-a4; the remaining registers are scratch owned
// by the kernel.
var Contract = map[Register]string{
	"a0":   "pointer to operand A (activation vector)",
	"a1":   "pointer to operand B (weight matrix or vector), advanced in place",
	"a2":   "pointer to the 32-bit output vector",
	"a3":   "inner-loop element count",
	"a4":   "outer-loop row count (matrix kernels only)",
	"a5":   "running activation pointer, reset from a0 on every row",
	"t0":   "outer-loop counter",
	"t1":   "inner-loop counter",
	"t2":   "dot product result",
	"t4":   "accumulator",
	"zero": "hard-wired zero",
	"ra":   "return address",
}

// VectorRegisters are the VPU registers used by loads and dots.
var VectorRegisters = map[Register]bool{
	"v0": true,
	"v1": true,
}

// IncludeHeader is the default coprocessor macro header.
const IncludeHeader = "custom_asm.h"
