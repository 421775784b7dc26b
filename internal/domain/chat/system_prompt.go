package chat

// DefaultSystemPrompt steers every chat completion toward clean markdown
// output that the web client can render directly.
const DefaultSystemPrompt = "Format responses in clean markdown:\n" +
	"- Use ## for section headers\n" +
	"- Separate sections/paragraphs with double line breaks\n" +
	"- Indent nested bullets with 4 spaces\n" +
	"- Use code fences (```) with language tags for code\n\n" +
	"Example:\n" +
	"## Header\n\n" +
	"Text here.\n\n" +
	"* Point\n" +
	"    * Sub-point"
