package computer

// SchemaJSON defines the JSON schema for desktop actions. The API-side
// declaration uses display geometry instead; this schema gates local
// validation before an action runs.
const SchemaJSON = `{
  "type": "object",
  "properties": {
    "action": {
      "type": "string",
      "description": "Desktop action to execute.",
      "enum": [
        "key",
        "type",
        "mouse_move",
        "left_click",
        "left_click_drag",
        "right_click",
        "middle_click",
        "double_click",
        "triple_click",
        "scroll",
        "wait",
        "cursor_position",
        "hold_key",
        "left_mouse_down",
        "left_mouse_up",
        "screenshot"
      ]
    },
    "coordinate": {
      "type": "array",
      "items": {"type": "integer"},
      "minItems": 2,
      "maxItems": 2,
      "description": "Target coordinate [x,y] in pixels."
    },
    "start_coordinate": {
      "type": "array",
      "items": {"type": "integer"},
      "minItems": 2,
      "maxItems": 2,
      "description": "Drag start coordinate [x,y] in pixels."
    },
    "text": {
      "type": "string",
      "description": "Text payload for key/type/hold_key actions."
    },
    "scroll_direction": {
      "type": "string",
      "enum": ["up", "down", "left", "right"],
      "description": "Scroll direction."
    },
    "scroll_amount": {
      "type": "integer",
      "minimum": 1,
      "description": "Scroll amount in ticks."
    },
    "duration": {
      "type": "number",
      "minimum": 0,
      "maximum": 100,
      "description": "Duration in seconds for wait/hold_key."
    }
  },
  "required": ["action"]
}`
