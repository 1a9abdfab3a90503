package opengl

import "fmt"

// maxJoints bounds the skinning palette uploaded per draw.
const maxJoints = 64

// skinning is shared by the lit and depth vertex shaders.
var skinning = fmt.Sprintf(`
uniform mat4 uModel;
uniform bool uSkinned;
uniform mat4 uJoints[%d];

mat4 worldMatrix(uvec4 joints, vec4 weights) {
    if (!uSkinned) {
        return uModel;
    }
    return weights.x * uJoints[joints.x] +
           weights.y * uJoints[joints.y] +
           weights.z * uJoints[joints.z] +
           weights.w * uJoints[joints.w];
}
`, maxJoints)

var litVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in uvec4 aJoints;
layout(location = 3) in vec4 aWeights;
` + skinning + `
uniform mat4 uViewProj;
uniform mat4 uLightViewProj;

out vec3 vNormal;
out vec4 vLightPos;

void main() {
    mat4 world = worldMatrix(aJoints, aWeights);
    vec4 pos = world * vec4(aPosition, 1.0);
    vNormal = mat3(world) * aNormal;
    vLightPos = uLightViewProj * pos;
    gl_Position = uViewProj * pos;
}
`

const litFragmentShader = `#version 410 core
in vec3 vNormal;
in vec4 vLightPos;

uniform vec4 uColor;
uniform vec3 uAmbient;
uniform vec3 uLightColor;
uniform vec3 uLightDir;
uniform bool uShadows;
uniform bool uReceiveShadow;
uniform sampler2DShadow uShadowMap;

out vec4 FragColor;

float visibility() {
    vec3 p = vLightPos.xyz / vLightPos.w * 0.5 + 0.5;
    if (p.z > 1.0) {
        return 1.0;
    }
    vec2 texel = 1.0 / vec2(textureSize(uShadowMap, 0));
    float lit = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            lit += texture(uShadowMap, vec3(p.xy + vec2(x, y) * texel, p.z - 0.002));
        }
    }
    return lit / 9.0;
}

void main() {
    vec3 n = normalize(vNormal);
    if (!gl_FrontFacing) {
        n = -n;
    }
    float diffuse = max(dot(n, normalize(uLightDir)), 0.0);
    float shadow = (uShadows && uReceiveShadow) ? visibility() : 1.0;
    vec3 rgb = uColor.rgb * (uAmbient + uLightColor * diffuse * shadow);
    FragColor = vec4(rgb, uColor.a);
}
`

var depthVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 2) in uvec4 aJoints;
layout(location = 3) in vec4 aWeights;
` + skinning + `
uniform mat4 uLightViewProj;

void main() {
    gl_Position = uLightViewProj * worldMatrix(aJoints, aWeights) * vec4(aPosition, 1.0);
}
`

const depthFragmentShader = `#version 410 core
void main() {}
`

// compositeVertexShader draws a fullscreen triangle without vertex buffers.
const compositeVertexShader = `#version 410 core
out vec2 vUV;

void main() {
    vec2 p = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
    vUV = p;
    gl_Position = vec4(p * 2.0 - 1.0, 0.0, 1.0);
}
`

const compositeFragmentShader = `#version 410 core
in vec2 vUV;
uniform sampler2D uTexture;
out vec4 FragColor;

void main() {
    FragColor = texture(uTexture, vUV);
}
`
