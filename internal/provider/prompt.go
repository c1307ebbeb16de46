package provider

// extractionPrompt asks an LLM to read one page and emit a recipe as
// strict JSON. The schema mirrors decodeDraft; anything outside it is
// ignored at the decode boundary.
const extractionPrompt = `You are a recipe extraction service. Read the web page at this URL and extract the single recipe it describes.

URL: %s

Return ONLY a JSON object with this exact shape, no prose before or after:
{
  "title": "<recipe title>",
  "description": "<one or two sentences>",
  "ingredients": [
    {"name": "<ingredient>", "amount": "<number, fraction or range>", "unit": "<unit>", "notes": "<optional>", "synonyms": "<optional alternate names>"}
  ],
  "instructions": [
    {"step": <n>, "text": "<what to do>", "time_minutes": <optional minutes>}
  ],
  "metadata": {
    "servings": <number or "range">,
    "total_time_minutes": <minutes>,
    "difficulty": "easy|medium|hard",
    "cultural_authenticity": "<traditional|adapted|fusion>"
  },
  "images": ["<absolute image url>"],
  "cultural_context": "<origin and significance of the dish>"
}

If the page is not a recipe, return {"title": ""}. Never invent ingredients that are not on the page.`
