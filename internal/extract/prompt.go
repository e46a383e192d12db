package extract

// Instruction is sent alongside every document.
const Instruction = `Extract the recipe from this cookbook page. Return ONLY valid JSON with no markdown fences:
{"title": "Recipe Title", "ingredients": ["ingredient 1", "ingredient 2", ...]}
List each ingredient as a simple string including quantity and name. If there are multiple recipes on the page, extract the most prominent one. If you cannot identify a recipe, return {"title": "", "ingredients": []}`
