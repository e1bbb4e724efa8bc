// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

// BuildArgs assembles the engine argument list for one conversion. It is a
// pure function of its inputs: the same request always yields the same
// arguments. The binary name itself is not included.
func BuildArgs(input, output string, format Format, mode Mode, quality Quality, overwrite bool) []string {
	args := make([]string, 0, 24)

	args = append(args,
		"-hide_banner", "-nostdin",
		"-loglevel", "error",
		"-stats", "-stats_period", "1",
	)

	args = append(args, "-i", input)

	switch mode {
	case ModeCompress:
		args = appendCompressCodecs(args, format, quality)
	default:
		// Remux only: copiar sin recodificar.
		args = append(args, "-c:v", "copy", "-c:a", "copy")
	}

	if format.Muxer == "mp4" || format.Muxer == "mov" {
		args = append(args, "-movflags", "+faststart")
	}

	// The muxer is named explicitly; the extension alone is ambiguous for
	// containers like matroska.
	args = append(args, "-f", format.Muxer)

	if overwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}

	return append(args, output)
}

func appendCompressCodecs(args []string, format Format, quality Quality) []string {
	if format.UsesQScale() {
		args = append(args, "-c:v", format.VideoCodec, "-qscale:v", format.QScale)
	} else {
		args = append(args, "-c:v", format.VideoCodec, "-crf", quality.CRF)
		if format.VideoCodec == "libvpx-vp9" {
			// VP9 constant-quality mode needs an explicit zero bitrate.
			args = append(args, "-b:v", "0")
		} else {
			args = append(args, "-preset", quality.Preset)
		}
	}
	return append(args, "-c:a", format.AudioCodec, "-b:a", quality.AudioBitrate)
}
