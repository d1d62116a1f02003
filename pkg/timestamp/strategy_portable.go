//go:build !((amd64 || arm64 || ppc64 || ppc64le || s390x || riscv64 || loong64) && !purego)

package timestamp

// Default is the strategy FromMillis uses. Without a hardware FMA (wasm
// among others) math.FMA is emulated in software, which is slower than
// working on the bits directly.
const Default = Portable
