package intent

import "context"

// Default returns the built-in dataset used when no configured source
// yields a valid set. The returned slice is a fresh copy.
func Default() Set {
	out := make(Set, len(builtin))
	copy(out, builtin)
	return out
}

var builtin = Set{
	{
		Category: "Akademik",
		Question: "Saya Lupa Password SIAKAD?",
		Answer:   "Silakan hubungi helpdesk LPTIK pada jam kerja atau kirim email ke heldpesk.lptik@unja.ac.id Silakan hubungi helpdesk LPTIK pada jam kerja atau kirim email ke heldpesk.lptik@unja.ac.id",
	},
	{
		Category: "Akademik",
		Question: "Saya Lupa password elearning UNJA?",
		Answer:   "Password elearning sama dengan password siakad,bila password siakad pun lupa silahkan datang ke helpdesk LPTIK atau kirim email ke helpdesk.lptik@unja.ac.id Password elearning sama dengan password siakad, bila password siakad pun lupa silahkan datang ke helpdesk LPTIK atau kirim email ke helpdesk.lptik@unja.ac.id",
	},
	{
		Category: "Sapaan",
		Question: "Halo",
		Answer:   "Halo! Ada yang bisa saya bantu terkait akademik, kemahasiswaan, atau kepegawaian di UNJA?",
	},
	{
		Category: "Sapaan",
		Question: "Hai",
		Answer:   "Hai! Selamat datang di Chatbot UNJA. Silakan tanyakan kebutuhan Anda!",
	},
	{
		Category: "Sapaan",
		Question: "Selamat pagi",
		Answer:   "Selamat pagi! Mau tanya tentang SIAKAD, elearning, atau info kampus?",
	},
	{
		Category: "Sapaan",
		Question: "Selamat siang",
		Answer:   "Selamat siang! Saya siap membantu informasi seputar UNJA. Ada yang bisa saya bantu?",
	},
	{
		Category: "Sapaan",
		Question: "Selamat sore",
		Answer:   "Selamat sore! Apakah Anda butuh bantuan terkait pendaftaran, jadwal, atau administrasi?",
	},
	{
		Category: "Sapaan",
		Question: "Selamat malam",
		Answer:   "Selamat malam nih! Apakah Anda butuh bantuan terkait pendaftaran, jadwal, atau administrasi sebelum tidur?",
	},
	{
		Category: "Sapaan",
		Question: "Apa kabar?",
		Answer:   "Baik sekali! Bagaimana dengan Anda? Ada yang bisa saya bantu hari ini?",
	},
	{
		Category: "Sapaan",
		Question: "Hai bot",
		Answer:   "Hai! Saya adalah asisten virtual UNJA. Ada yang ingin ditanyakan?",
	},
	{
		Category: "Sapaan",
		Question: "Hello",
		Answer:   "Hello! Selamat datang di layanan informasi UNJA. Silakan bertanya!",
	},
	{
		Category: "Sapaan",
		Question: "Assalamualaikum",
		Answer:   "Waalaikumsalam! Semoga harimu berkah. Ada yang bisa saya bantu seputar UNJA?",
	},
	{
		Category: "Sapaan",
		Question: "Hey",
		Answer:   "Hey hey! Butuh bantuan soal perkuliahan, sistem, atau info UNJA?",
	},
	{
		Category: "Sapaan",
		Question: "Bot",
		Answer:   "Iya, saya di sini! Mau nanya apa hari ini? ",
	},
}

// builtinSource serves the built-in dataset. It never fails.
type builtinSource struct{}

// Builtin returns a Source backed by Default.
func Builtin() Source { return builtinSource{} }

func (builtinSource) Name() string { return "builtin" }

func (builtinSource) Load(_ context.Context) (Set, error) { return Default(), nil }
