// Package deps checks the external tools recogni shells out to: the python
// interpreter or uv launcher, the faster_whisper module, and nvidia-smi for
// CUDA detection.
package deps
