package asm

import "text/template"

// matrixSkeleton is the nested-loop vector x matrix kernel. The outer loop
// walks the matrix rows and restores the vector pointer on every row.
var matrixSkeleton = template.Must(template.New("matrix").Option("missingkey=error").Parse(`
#include "{{.Header}}"

.global {{.Symbol}}
// Process one output of a Vec x Mat (Linear) operation ({{.Width}}-bit)
// a0: pointer to A Vec ({{.LeftBits}}-bit)
// a1: pointer to W Mat ({{.RightBits}}-bit)
// a2: pointer to O Vec (32-bit)
// a3: Number of elements in A Vec (Inner loop 1)
// a4: Number of elements in W Mat (Outer loop 2)
{{.Symbol}}:
    fence.i
    vpu_CONFIG({{.ConfigHigh}}, {{.ConfigLow}})
    li t0, 0  // Loop counter 1
loop1:
    li t1, 0  // Loop counter 2
    mv a5, a0 // Save pointer to A Vec
    li t4, 0  // Accumulator
loop2:
{{.Body}}
    addi t1, t1, {{.Advance}}
    blt t1, a3, loop2

    sw t4, 0(a2)
    addi t0, t0, 1
    addi a2, a2, 4
    blt t0, a4, loop1
    ret
`))

// dotSkeleton is the single-loop dot product kernel.
var dotSkeleton = template.Must(template.New("dotp").Option("missingkey=error").Parse(`
#include "{{.Header}}"

.global {{.Symbol}}
// Dot product of two vectors ({{.Width}}-bit)
// a0: pointer to A Vec ({{.LeftBits}}-bit)
// a1: pointer to B Vec ({{.RightBits}}-bit)
// a2: pointer to O (32-bit)
// a3: Number of elements in A Vec (Inner loop 1)
{{.Symbol}}:
    fence.i
    vpu_CONFIG({{.ConfigHigh}}, {{.ConfigLow}})
    li t1, 0  // Loop counter 1
    mv a5, a0 // Save pointer to A Vec
    li t4, 0  // Accumulator
loop1:
{{.Body}}
    addi t1, t1, {{.Advance}}
    blt t1, a3, loop1

    sw t4, 0(a2)
    ret
`))

// Fragments of the compute body. Each load and dot starts on a fresh
// paragraph; the accumulate add follows its dot directly.
const (
	loadActivationFmt = "\n    vpu_LOAD(a5, v0)\n    addi a5, a5, %d\n"
	loadWeightFmt     = "\n    vpu_LOAD(a1, v1)\n    addi a1, a1, %d\n"
	dotNormal         = "\n    vpu_VDOT(t2, v0, v1)    // SIMD Dot Product\n"
	dotReversed       = "\n    vpu_VDOT(t2, v1, v0)    // SIMD Dot Product\n"
	accumulate        = "    add t4, t4, t2\n"
)
