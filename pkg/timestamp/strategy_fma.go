//go:build (amd64 || arm64 || ppc64 || ppc64le || s390x || riscv64 || loong64) && !purego

package timestamp

// Default is the strategy FromMillis uses. These architectures compile
// math.FMA to a single instruction.
const Default = Intrinsic
