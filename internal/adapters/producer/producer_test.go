package producer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFile_Kind(t *testing.T) {
	tests := []struct {
		name string
		file File
		want Kind
	}{
		{name: "pdf by type", file: File{Name: "cv", ContentType: "application/pdf"}, want: KindPDF},
		{name: "pdf by ext", file: File{Name: "CV.PDF", ContentType: "application/octet-stream"}, want: KindPDF},
		{name: "txt with charset", file: File{Name: "cv", ContentType: "text/plain; charset=utf-8"}, want: KindText},
		{name: "txt by ext", file: File{Name: "cv.txt"}, want: KindText},
		{name: "docx", file: File{Name: "cv.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.file.Kind())
		})
	}
}

func TestInput_TextAndValidate(t *testing.T) {
	pasted := Input{ResumeText: "  Led migration.  ", File: &File{Name: "cv.txt", Data: []byte("ignored")}}
	require.Equal(t, "Led migration.", pasted.Text())

	upload := Input{File: &File{Name: "cv.txt", Data: []byte("Built APIs\xff.")}}
	require.Equal(t, "Built APIs.", upload.Text())

	pdf := Input{File: &File{Name: "cv.pdf", Data: []byte("%PDF-1.7")}}
	require.Empty(t, pdf.Text())
	require.NoError(t, pdf.Validate())

	bad := Input{File: &File{Name: "cv.docx"}}
	require.ErrorIs(t, bad.Validate(), ErrUnsupportedFile)
}

func TestInput_CheckComplete(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{name: "blank", in: Input{}, want: ErrResumeRequired},
		{name: "whitespace resume", in: Input{ResumeText: "  ", JobDescription: "Go"}, want: ErrResumeRequired},
		{name: "no job description", in: Input{ResumeText: "Led migration."}, want: ErrJobDescriptionRequired},
		{name: "whitespace job description", in: Input{File: &File{Name: "cv.pdf"}, JobDescription: " \n"}, want: ErrJobDescriptionRequired},
		{name: "pasted text", in: Input{ResumeText: "Led migration.", JobDescription: "Go"}},
		{name: "upload", in: Input{File: &File{Name: "cv.pdf"}, JobDescription: "Go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.CheckComplete()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMessageOf(t *testing.T) {
	require.Equal(t, "Only PDF/TXT is supported.", MessageOf(fmt.Errorf("analyze: %w", ErrUnsupportedFile), MessageAnalyzeFailed))
	require.Equal(t, MessageAnalyzeFailed, MessageOf(errors.New("quota exceeded"), MessageAnalyzeFailed))
}

func TestPreview(t *testing.T) {
	require.Equal(t, "abc", Preview("abc", 10))
	require.Equal(t, "가나…", Preview("가나다라", 2))
}
